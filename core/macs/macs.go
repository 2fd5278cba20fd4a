// Package macs implements the ingestion adapter (C7): a streaming reader
// for the MaCS text format that feeds a panel.Panel one site at a time.
//
// Format (spec.md §6):
//
//	COMMAND: <cmd> <M> <L> ...
//	SEED: ...
//	SITE: <num> <p in [0,1)> <time> <M chars in {'0','1'}>
//	...
//
// Grounded on the teacher's core/fasta/stream.go: a bufio.Scanner-based,
// context-cancelable, line-oriented streaming loop with a flush/emit
// closure, adapted from FASTA '>' headers to MaCS line prefixes.
package macs

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"ipcr-core/panel"
	"ipcr-core/perr"
)

// asciiAllele maps the ASCII digits '0'/'1' to the binary allele alphabet;
// every other byte maps to 0xFF (invalid), built once per the teacher's
// core/primer/iupac.go [256]byte table idiom.
var asciiAllele [256]byte

func init() {
	for i := range asciiAllele {
		asciiAllele[i] = 0xFF
	}
	asciiAllele['0'] = 0
	asciiAllele['1'] = 1
}

// Header is the parsed COMMAND line: haplotype count and coordinate scale.
type Header struct {
	M int
	L float64
}

// StreamCtx reads a MaCS stream from r and appends one column to p per
// SITE line, scaling each site's real-valued position p in [0,1) to an
// integer coordinate x = floor(L*p). It is cancelable: ctx.Done() is
// checked once per site.
func StreamCtx(ctx context.Context, r io.Reader, p *panel.Panel) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var hdr Header
	sawHeader := false
	raw := make([]byte, p.M+1)

	site := 0
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "COMMAND:"):
			h, err := parseHeader(line)
			if err != nil {
				return err
			}
			hdr = h
			sawHeader = true
		case strings.HasPrefix(line, "SEED:"):
			// Informational only; nothing to do.
		case strings.HasPrefix(line, "SITE:"):
			if !sawHeader {
				return perr.Format("SITE: line before COMMAND: header")
			}
			if hdr.M != p.M {
				return perr.Shape("macs header M=%d disagrees with panel M=%d", hdr.M, p.M)
			}
			coord, err := parseSite(line, p.M, hdr.L, raw)
			if err != nil {
				return err
			}
			if err := p.AppendColumn(raw[:p.M], coord); err != nil {
				return err
			}
			site++
		}
	}
	if err := sc.Err(); err != nil {
		return perr.IO(err, "macs scan")
	}
	return nil
}

func parseHeader(line string) (Header, error) {
	fields := strings.Fields(line)
	// fields[0]="COMMAND:" fields[1]=cmd fields[2]=M fields[3]=L ...
	if len(fields) < 4 {
		return Header{}, perr.Format("malformed COMMAND: line %q", line)
	}
	m, err := strconv.Atoi(fields[2])
	if err != nil {
		return Header{}, perr.Format("malformed M in COMMAND: line %q", line)
	}
	l, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Header{}, perr.Format("malformed L in COMMAND: line %q", line)
	}
	return Header{M: m, L: l}, nil
}

// parseSite parses one SITE: line, writing the mapped allele column into
// raw[0:m]; raw[m] is left untouched, since panel.AppendColumn places the
// codec sentinel in its own sorted column before encoding. It returns the
// scaled integer coordinate.
func parseSite(line string, m int, scale float64, raw []byte) (int, error) {
	fields := strings.Fields(line)
	// fields[0]="SITE:" fields[1]=num fields[2]=p fields[3]=time fields[4]=alleles
	if len(fields) < 5 {
		return 0, perr.Format("malformed SITE: line %q", line)
	}
	pos, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, perr.Format("malformed position in SITE: line %q", line)
	}
	alleles := fields[4]
	if len(alleles) < m {
		return 0, perr.Format("SITE: line has %d alleles, want %d", len(alleles), m)
	}
	for i := 0; i < m; i++ {
		v := asciiAllele[alleles[i]]
		if v == 0xFF {
			return 0, perr.Format("non-binary character %q at haplotype %d", alleles[i], i)
		}
		raw[i] = v
	}
	return int(scale * pos), nil
}

// StreamFromReader is StreamCtx with a background context, for callers
// that don't need cancellation.
func StreamFromReader(r io.Reader, p *panel.Panel) error {
	return StreamCtx(context.Background(), r, p)
}

// BuildCtx reads a MaCS stream from r, creating the panel itself once the
// COMMAND: header is parsed (the CLI entry point doesn't know M ahead of
// ingestion the way StreamCtx's caller does). onSite, if non-nil, is
// called after every appended column — the checkpoint rotator's hook
// during ingestion (spec.md §4.6/§6 "-checkpoint <n>").
func BuildCtx(ctx context.Context, r io.Reader, onSite func(*panel.Panel) error) (*panel.Panel, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var hdr Header
	var p *panel.Panel
	var raw []byte

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "COMMAND:"):
			h, err := parseHeader(line)
			if err != nil {
				return nil, err
			}
			hdr = h
			p = panel.New(hdr.M)
			raw = make([]byte, hdr.M+1)
		case strings.HasPrefix(line, "SEED:"):
			// Informational only; nothing to do.
		case strings.HasPrefix(line, "SITE:"):
			if p == nil {
				return nil, perr.Format("SITE: line before COMMAND: header")
			}
			coord, err := parseSite(line, p.M, hdr.L, raw)
			if err != nil {
				return nil, err
			}
			if err := p.AppendColumn(raw[:p.M], coord); err != nil {
				return nil, err
			}
			if onSite != nil {
				if err := onSite(p); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.IO(err, "macs scan")
	}
	if p == nil {
		return nil, perr.Format("macs stream has no COMMAND: header")
	}
	return p, nil
}

// Build is BuildCtx with a background context.
func Build(r io.Reader, onSite func(*panel.Panel) error) (*panel.Panel, error) {
	return BuildCtx(context.Background(), r, onSite)
}
