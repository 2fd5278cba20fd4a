// Package panel implements the panel container (C2): it owns the column
// stream, site metadata, and the permutation/divergence scratch that the
// prefix-sort updater advances one site at a time.
package panel

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"ipcr-core/codec"
	"ipcr-core/pbwt"
)

// Site is one panel column's metadata: its genomic coordinate and the
// count of 1-alleles observed there.
type Site struct {
	X int
	F int
}

// Observer receives the sorted column y, the permutation a and divergence
// d, and the site index k, exactly as they stand before site k is folded
// into (a, d). This is the shape core/pbwt's match reporters need; it is
// also what IterateColumns and the construction-time hook both hand out,
// so the same reporter call works whether matching runs alongside
// construction or over an already-built panel.
type Observer func(y []byte, a, d []int, k int) error

// Panel is the invariant entity: M haplotypes across N sites, stored as a
// permutation-sorted, run-length-encoded column stream.
type Panel struct {
	M      int
	N      int
	Sites  []Site
	Stream []byte

	state  *pbwt.State
	y      []byte
	encBuf []byte
}

// New creates an empty panel for m haplotypes.
func New(m int) *Panel {
	return &Panel{
		M:      m,
		state:  pbwt.NewState(m),
		y:      make([]byte, m+1),
		encBuf: make([]byte, m+8),
	}
}

// FromStream reconstructs a Panel from an already-encoded column stream
// read off disk (C6): M and N come from the binary framing, Stream is the
// raw codec bytes. Per-site 1-counts are recovered by decoding once, since
// the binary panel file carries no metadata beyond the stream itself;
// coordinates default to 0 until a caller attaches a sites file with
// ReadSites. The permutation/divergence scratch is replayed forward so the
// result is in the same state a live construction would have left it in.
func FromStream(m, n int, stream []byte) *Panel {
	p := New(m)
	p.N = n
	p.Stream = stream
	p.Sites = make([]Site, n)
	y := make([]byte, m+1)
	off := 0
	for k := 0; k < n; k++ {
		read, ones := codec.Decode(stream[off:], m, y)
		off += read
		y[m] = codec.YSentinel
		p.Sites[k].F = ones
		p.state.UpdateAAndD(y, k)
	}
	return p
}

// AppendColumn appends one site's raw allele column, indexed by original
// haplotype id (values in {0,1}), advancing (a, d) and growing the stream.
// coord is the site's genomic coordinate, recorded verbatim in Sites.
func (p *Panel) AppendColumn(raw []byte, coord int) error {
	return p.appendColumn(raw, coord, nil)
}

// AppendColumnObserved is AppendColumn, but calls observe with the sorted
// column and the pre-update (a, d) before encoding and updating. Callers
// that need to run C4's match reporters alongside construction use this
// instead of driving core/pbwt directly.
func (p *Panel) AppendColumnObserved(raw []byte, coord int, observe Observer) error {
	return p.appendColumn(raw, coord, observe)
}

func (p *Panel) appendColumn(raw []byte, coord int, observe Observer) error {
	if len(raw) < p.M {
		return fmt.Errorf("pbwt: column has %d alleles, want %d", len(raw), p.M)
	}
	f := 0
	for i := 0; i < p.M; i++ {
		v := raw[p.state.A[i]]
		if v != 0 && v != 1 {
			return fmt.Errorf("pbwt: non-binary allele %d at haplotype %d site %d", v, p.state.A[i], p.N)
		}
		p.y[i] = v
		if v == 1 {
			f++
		}
	}
	p.y[p.M] = codec.YSentinel

	k := p.N
	if observe != nil {
		if err := observe(p.y, p.state.A, p.state.D, k); err != nil {
			return err
		}
	}

	if cap(p.encBuf) < p.M+8 {
		p.encBuf = make([]byte, p.M+8)
	}
	n := codec.Encode(p.y, p.M, p.encBuf)
	p.Stream = append(p.Stream, p.encBuf[:n]...)
	p.Sites = append(p.Sites, Site{X: coord, F: f})

	p.state.UpdateAAndD(p.y, k)
	p.N++
	return nil
}

// IterateColumns replays construction by decoding the stored stream from
// scratch with a fresh permutation/divergence state, invoking visit once
// per site with the decoded sorted column and the pre-update (a, d) — the
// same shape AppendColumnObserved exposes during live construction. This
// lets a caller re-run match enumeration over an already-built panel
// without re-ingesting the source data.
func (p *Panel) IterateColumns(visit Observer) error {
	st := pbwt.NewState(p.M)
	y := make([]byte, p.M+1)
	off := 0
	for k := 0; k < p.N; k++ {
		read, _ := codec.Decode(p.Stream[off:], p.M, y)
		off += read
		y[p.M] = codec.YSentinel
		if err := visit(y, st.A, st.D, k); err != nil {
			return err
		}
		st.UpdateAAndD(y, k)
	}
	return nil
}

// Haplotype reconstructs the N-allele sequence for haplotype h by
// replaying IterateColumns and reading off the allele at h's current sort
// position each site. It is O(N*M) and intended for -haps export and tests,
// not for repeated per-haplotype queries.
func (p *Panel) Haplotype(h int) ([]byte, error) {
	if h < 0 || h >= p.M {
		return nil, fmt.Errorf("pbwt: haplotype %d out of range [0,%d)", h, p.M)
	}
	out := make([]byte, p.N)
	err := p.IterateColumns(func(y []byte, a, d []int, k int) error {
		for i := 0; i < p.M; i++ {
			if a[i] == h {
				out[k] = y[i]
				return nil
			}
		}
		return fmt.Errorf("pbwt: haplotype %d missing from permutation at site %d", h, k)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Subsample derives a fresh panel over haplotypes [start, start+n) of the
// receiver. The receiver's storage is not reused by the result.
func (p *Panel) Subsample(start, n int) (*Panel, error) {
	if start < 0 || n <= 0 || start+n > p.M {
		return nil, fmt.Errorf("pbwt: subsample range [%d,%d) out of bounds for M=%d", start, start+n, p.M)
	}
	out := New(n)
	raw := make([]byte, p.M)
	err := p.IterateColumns(func(y []byte, a, d []int, k int) error {
		for i := 0; i < p.M; i++ {
			raw[a[i]] = y[i]
		}
		return out.AppendColumn(raw[start:start+n], p.Sites[k].X)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Subsites derives a fresh panel retaining only sites whose 1-frequency
// exceeds fmin*M, further thinned to approximately a frac fraction of
// those (frac == 1 keeps all of them) by a running-remainder decimation
// that spreads the kept sites evenly rather than taking a contiguous
// prefix. The qualifying site-index set is built as a roaring bitmap since
// panels large enough for this to matter are exactly the ones where a
// plain N-length bool slice per caller starts to add up.
func (p *Panel) Subsites(fmin, frac float64) (*Panel, error) {
	if frac <= 0 {
		frac = 1
	}
	keep := roaring.New()
	acc := 0.0
	for k, s := range p.Sites {
		if float64(s.F) <= fmin*float64(p.M) {
			continue
		}
		acc += frac
		if acc < 1 {
			continue
		}
		acc -= 1
		keep.Add(uint32(k))
	}

	out := New(p.M)
	raw := make([]byte, p.M)
	err := p.IterateColumns(func(y []byte, a, d []int, k int) error {
		if !keep.Contains(uint32(k)) {
			return nil
		}
		for i := 0; i < p.M; i++ {
			raw[a[i]] = y[i]
		}
		return out.AppendColumn(raw, p.Sites[k].X)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
