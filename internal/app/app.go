// internal/app/app.go
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"ipcr-core/codec"
	"ipcr-core/macs"
	"ipcr-core/matcher"
	"ipcr-core/panel"
	"ipcr-core/panelio"
	"ipcr-core/pbwt"

	"ipcr/internal/checkpoint"
	"ipcr/internal/cli"
	"ipcr/internal/diag"
	"ipcr/internal/invariant"
	"ipcr/internal/jsonutil"
	"ipcr-core/perr"
	"ipcr/internal/stats"
	"ipcr/internal/version"
	"ipcr/internal/writers"
)

// RunContext is the CLI entry point: parse argv, execute the requested
// pipeline of commands against a panel, and return a process exit code.
// Commands run in a fixed order regardless of flag order, mirroring the
// source pbwt tool's own sequencing: obtain a panel (read or ingest),
// attach sites metadata, derive (subsample/subsites), report (stats,
// long/maximal matches, external test), then persist (write/writeSites/
// haps).
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	diag.SetOutput(stderr)

	fs := cli.NewFlagSet("ipcr")
	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(stderr)
			fs.Usage()
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.Version {
		fmt.Fprintf(stdout, "ipcr version %s\n", version.Version)
		return 0
	}
	diag.SetVerbose(opts.Stats)

	if err := run(ctx, opts, stdout, stderr); err != nil {
		diag.Fail("ipcr", err)
		return exitCode(err)
	}
	return 0
}

// Run is RunContext with a background context.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func exitCode(err error) int {
	var perrErr *perr.Error
	if errors.As(err, &perrErr) {
		switch perrErr.Kind {
		case perr.KindArgument:
			return 2
		case perr.KindIO:
			return 3
		default:
			return 1
		}
	}
	return 1
}

func run(ctx context.Context, opts cli.Options, stdout, stderr io.Writer) error {
	checker := invariant.New(opts.Check)

	p, err := obtainPanel(ctx, opts, checker)
	if err != nil {
		return err
	}

	if opts.ReadSitesFile != "" {
		ok, err := panelio.ReadSites(p, opts.ReadSitesFile)
		if err != nil {
			return err
		}
		if !ok {
			diag.Logger.Warn().Str("file", opts.ReadSitesFile).Int("panelN", p.N).
				Msg("sites file line count disagrees with panel; metadata dropped")
		}
	}

	if opts.HasSubsample() {
		p, err = p.Subsample(opts.SubsampleStart, opts.SubsampleN)
		if err != nil {
			return err
		}
	}
	if opts.HasSubsites() {
		p, err = p.Subsites(opts.SubsitesFmin, opts.SubsitesFrac)
		if err != nil {
			return err
		}
	}

	if opts.Stats {
		if err := printStats(p, stdout); err != nil {
			return err
		}
	}

	if opts.HasLongWithin() {
		if err := reportWithin(p, opts.MatchFormat, stdout, checker, func(y []byte, a, d []int, k int, terminal bool, sink pbwt.Sink) error {
			return pbwt.LongMatches(y, a, d, p.M, k, opts.LongWithin, terminal, sink)
		}, false); err != nil {
			return err
		}
	}
	if opts.MaximalWithin {
		if err := reportWithin(p, opts.MatchFormat, stdout, checker, func(y []byte, a, d []int, k int, terminal bool, sink pbwt.Sink) error {
			return pbwt.MaximalMatches(y, a, d, p.M, k, terminal, sink)
		}, true); err != nil {
			return err
		}
	}

	if opts.TestFile != "" {
		if err := runExternalTest(p, opts, stdout); err != nil {
			return err
		}
	}

	if opts.WriteFile != "" {
		if err := panelio.WritePanel(p, opts.WriteFile); err != nil {
			return err
		}
	}
	if opts.WriteSitesFile != "" {
		if err := panelio.WriteSites(p, opts.WriteSitesFile); err != nil {
			return err
		}
	}
	if opts.HapsFile != "" {
		if err := writeHaps(p, opts.HapsFile); err != nil {
			return err
		}
	}

	return nil
}

func obtainPanel(ctx context.Context, opts cli.Options, checker *invariant.Checker) (*panel.Panel, error) {
	if opts.MacsFile != "" {
		r, closeFn, err := openInput(opts.MacsFile)
		if err != nil {
			return nil, err
		}
		defer closeFn()

		rotator := checkpoint.New("", opts.CheckpointEvery)
		sw := diag.Start("ingest")
		p, err := macs.BuildCtx(ctx, r, func(p *panel.Panel) error {
			return rotator.MaybeSnapshot(p)
		})
		sw.Stop()
		if err != nil {
			return nil, err
		}
		if err := checkEncoding(p, checker); err != nil {
			return nil, err
		}
		return p, nil
	}
	return panelio.ReadPanel(opts.ReadFile)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, perr.IO(err, "open %s", path)
	}
	return fh, func() { fh.Close() }, nil
}

// checkEncoding implements property 4 for -check mode: decoding the stored
// stream and re-encoding every column must reproduce the stream exactly.
func checkEncoding(p *panel.Panel, checker *invariant.Checker) error {
	if !checker.Enabled() {
		return nil
	}
	y := make([]byte, p.M+1)
	out := make([]byte, p.M+8)
	off := 0
	for k := 0; k < p.N; k++ {
		read, _ := codec.Decode(p.Stream[off:], p.M, y)
		y[p.M] = codec.YSentinel
		n := codec.Encode(y, p.M, out)
		ok := n == read
		for i := 0; ok && i < n; i++ {
			if out[i] != p.Stream[off+i] {
				ok = false
			}
		}
		if err := checker.Require(ok, k, "re-encoded column disagrees with stored stream"); err != nil {
			return err
		}
		off += read
	}
	return nil
}

func printStats(p *panel.Panel, w io.Writer) error {
	minorFreq := make([]float64, p.N)
	for k, s := range p.Sites {
		f := s.F
		if p.M-f < f {
			f = p.M - f
		}
		minorFreq[k] = float64(f) / float64(p.M)
	}
	var finalD []int
	err := p.IterateColumns(func(y []byte, a, d []int, k int) error {
		if k == p.N-1 {
			finalD = append([]int(nil), d...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	summary := stats.Summarize(p.M, p.N, minorFreq, finalD, len(p.Stream))
	return jsonutil.EncodePretty(w, summary)
}

type withinFn func(y []byte, a, d []int, k int, terminal bool, sink pbwt.Sink) error

func reportWithin(p *panel.Panel, format string, w io.Writer, checker *invariant.Checker, fn withinFn, maximal bool) error {
	mw, err := writers.NewMatchWriter(format, w)
	if err != nil {
		return err
	}

	// curY/inv back the maximal reporter's non-extendability check (property
	// 6/7): inv[h] is haplotype h's current sort position, so curY[inv[h]]
	// is its allele at the column the match is being reported at. Both are
	// nil during the terminal flush, where there is no further column left
	// to extend into and the check does not apply.
	var curY []byte
	var inv []int
	setState := func(y []byte, a []int) {
		curY = y
		if !maximal || !checker.Enabled() || y == nil {
			inv = nil
			return
		}
		if inv == nil {
			inv = make([]int, p.M)
		}
		for pos, hap := range a {
			inv[hap] = pos
		}
	}

	sink := func(m pbwt.Match) error {
		if err := checker.Require(m.I != m.J, -1, "self-match reported: haplotype %d", m.I); err != nil {
			return err
		}
		if err := checker.Require(m.Start < m.End, -1, "zero-length match reported for pair (%d,%d)", m.I, m.J); err != nil {
			return err
		}
		if inv != nil {
			extendable := curY[inv[m.I]] == curY[inv[m.J]]
			if err := checker.Require(!extendable, -1,
				"maximal match (%d,%d) agrees on the allele at its ending column %d and could extend further", m.I, m.J, m.End); err != nil {
				return err
			}
		}
		return mw.Emit(writers.MatchRecord{I: m.I, J: m.J, Start: m.Start, End: m.End})
	}

	sw := diag.Start("matches")
	err = p.IterateColumns(func(y []byte, a, d []int, k int) error {
		setState(y, a)
		return fn(y, a, d, k, false, sink)
	})
	if err == nil {
		setState(nil, nil)
		err = fn(nil, lastA(p), lastD(p), p.N, true, sink)
	}
	sw.Stop()
	closeErr := mw.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// lastA/lastD recover the final (a, d) pair by replaying the panel once
// more; IterateColumns hands out (a, d) as they stand before each site is
// folded in, so the state after the loop already holds the post-N-th-site
// values the terminal flush call needs.
func lastA(p *panel.Panel) []int {
	a, _ := finalState(p)
	return a
}
func lastD(p *panel.Panel) []int {
	_, d := finalState(p)
	return d
}
func finalState(p *panel.Panel) ([]int, []int) {
	st := pbwt.NewState(p.M)
	y := make([]byte, p.M+1)
	off := 0
	for k := 0; k < p.N; k++ {
		read, _ := codec.Decode(p.Stream[off:], p.M, y)
		off += read
		y[p.M] = codec.YSentinel
		st.UpdateAAndD(y, k)
	}
	return st.A, st.D
}

func runExternalTest(p *panel.Panel, opts cli.Options, w io.Writer) error {
	queryPanel, err := panelio.ReadPanel(opts.TestFile)
	if err != nil {
		return err
	}
	if queryPanel.N != p.N {
		return perr.Shape("query panel N=%d disagrees with panel N=%d", queryPanel.N, p.N)
	}
	idx, err := matcher.Build(p)
	if err != nil {
		return err
	}
	mw, err := writers.NewMatchWriter(opts.MatchFormat, w)
	if err != nil {
		return err
	}
	for q := 0; q < queryPanel.M; q++ {
		z, err := queryPanel.Haplotype(q)
		if err != nil {
			return err
		}
		err = idx.Query(z, func(m matcher.Match) error {
			return mw.Emit(writers.MatchRecord{I: q, J: m.Panel, Start: m.Start, End: m.End})
		})
		if err != nil {
			mw.Close()
			return err
		}
	}
	return mw.Close()
}

func writeHaps(p *panel.Panel, path string) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()

	row := make([]byte, p.M+1)
	row[p.M] = '\n'
	return p.IterateColumns(func(y []byte, a, d []int, k int) error {
		for i := 0; i < p.M; i++ {
			if y[i] == 0 {
				row[a[i]] = '0'
			} else {
				row[a[i]] = '1'
			}
		}
		_, err := w.Write(row)
		return err
	})
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, perr.IO(err, "create %s", path)
	}
	return fh, func() { fh.Close() }, nil
}
