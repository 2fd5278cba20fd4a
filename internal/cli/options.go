// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"

	"ipcr/internal/version"
)

// unset is the sentinel for optional numeric flags that have no default
// in-range value (threshold, subsample/subsites parameters): the flag was
// never supplied.
const unset = -1

// Options holds every flag from spec.md §6's CLI surface.
type Options struct {
	Check bool
	Stats bool

	MacsFile      string
	ReadFile      string
	WriteFile     string
	ReadSitesFile string
	WriteSitesFile string
	HapsFile      string

	CheckpointEvery int

	SubsampleStart int
	SubsampleN     int

	SubsitesFmin float64
	SubsitesFrac float64

	LongWithin    int
	MaximalWithin bool

	TestFile string

	MatchFormat string // "text" | "jsonl"

	Version bool
}

// HasSubsample reports whether -subsampleStart/-subsampleN were both given.
func (o Options) HasSubsample() bool { return o.SubsampleStart != unset && o.SubsampleN != unset }

// HasSubsites reports whether -subsitesFmin was given.
func (o Options) HasSubsites() bool { return o.SubsitesFmin >= 0 }

// HasLongWithin reports whether -longWithin was given.
func (o Options) HasLongWithin() bool { return o.LongWithin != unset }

func usage(fs *flag.FlagSet, name string) func() {
	return func() {
		fmt.Fprintf(fs.Output(), `%s: PBWT panel engine

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
}

// ParseArgs registers and parses all flags, returning a validated Options.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.Usage = usage(fs, fs.Name())

	fs.BoolVar(&opt.Check, "check", false, "validate invariants during construction and reporting [false]")
	fs.BoolVar(&opt.Stats, "stats", false, "print panel summary statistics [false]")

	fs.StringVar(&opt.MacsFile, "macs", "", "ingest a MaCS-format stream (file or '-')")
	fs.StringVar(&opt.ReadFile, "read", "", "read a binary panel file (file or '-')")
	fs.StringVar(&opt.WriteFile, "write", "", "write the binary panel file (file or '-')")
	fs.StringVar(&opt.ReadSitesFile, "readSites", "", "read a sites text file (file or '-')")
	fs.StringVar(&opt.WriteSitesFile, "writeSites", "", "write the sites text file (file or '-')")
	fs.StringVar(&opt.HapsFile, "haps", "", "emit the haplotype matrix (file or '-')")

	fs.IntVar(&opt.CheckpointEvery, "checkpoint", 0, "rotating snapshot every n sites during ingestion (0 disables) [0]")

	fs.IntVar(&opt.SubsampleStart, "subsampleStart", unset, "first haplotype index to keep when sub-sampling individuals")
	fs.IntVar(&opt.SubsampleN, "subsampleN", unset, "number of haplotypes to keep when sub-sampling individuals")

	fs.Float64Var(&opt.SubsitesFmin, "subsitesFmin", unset, "minimum 1-frequency (as a fraction of M) a site must exceed to be kept")
	fs.Float64Var(&opt.SubsitesFrac, "subsitesFrac", 1.0, "fraction of qualifying sites to retain [1.0]")

	fs.IntVar(&opt.LongWithin, "longWithin", unset, "report long matches of at least this length within the panel")
	fs.BoolVar(&opt.MaximalWithin, "maximalWithin", false, "report maximal matches within the panel [false]")

	fs.StringVar(&opt.TestFile, "test", "", "match haplotypes from this panel file against the built panel")

	fs.StringVar(&opt.MatchFormat, "matchFormat", "text", "match output format: text | jsonl [text]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}

	if err := validate(opt); err != nil {
		return opt, err
	}
	return opt, nil
}

func validate(o Options) error {
	if o.MacsFile == "" && o.ReadFile == "" {
		return errors.New("provide -macs or -read to obtain a panel")
	}
	if o.MacsFile != "" && o.ReadFile != "" {
		return errors.New("-macs conflicts with -read")
	}
	if o.CheckpointEvery < 0 {
		return errors.New("-checkpoint must be >= 0")
	}
	if (o.SubsampleStart != unset) != (o.SubsampleN != unset) {
		return errors.New("-subsampleStart and -subsampleN must be supplied together")
	}
	if o.SubsampleStart != unset && o.SubsampleStart < 0 {
		return errors.New("-subsampleStart must be >= 0")
	}
	if o.SubsampleN != unset && o.SubsampleN <= 0 {
		return errors.New("-subsampleN must be > 0")
	}
	if o.SubsitesFmin != unset && (o.SubsitesFmin < 0 || o.SubsitesFmin > 1) {
		return errors.New("-subsitesFmin must be in [0,1]")
	}
	if o.SubsitesFrac <= 0 || o.SubsitesFrac > 1 {
		return errors.New("-subsitesFrac must be in (0,1]")
	}
	if o.LongWithin != unset && o.LongWithin < 0 {
		return errors.New("-longWithin must be >= 0")
	}
	if o.MatchFormat != "text" && o.MatchFormat != "jsonl" {
		return fmt.Errorf("invalid -matchFormat %q", o.MatchFormat)
	}
	return nil
}
