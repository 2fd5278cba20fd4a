// internal/writers/matches.go
package writers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"ipcr/internal/jsonlutil"
)

// MatchRecord is one reported haplotype-pair match. For within-panel
// matches (C4) I and J are both panel haplotype indices; for the external
// matcher (C5) I is the query haplotype index and J the panel haplotype it
// matched, so both commands share one record shape and one writer.
type MatchRecord struct {
	I, J, Start, End int
}

// MatchWriter streams MatchRecords to w in the requested format ("text" or
// "jsonl"); Close must be called exactly once, after the last Emit, to
// flush buffered output and report any write error.
type MatchWriter interface {
	Emit(MatchRecord) error
	Close() error
}

// NewMatchWriter returns a MatchWriter for format, grounded on the
// teacher's internal/output/text.go tab-separated convention for "text"
// and internal/jsonlutil's pooled streaming encoder for "jsonl".
func NewMatchWriter(format string, w io.Writer) (MatchWriter, error) {
	switch format {
	case "text", "":
		return &textMatchWriter{bw: bufio.NewWriter(w)}, nil
	case "jsonl":
		in, done := jsonlutil.Start(w, 256, func(enc *json.Encoder, r MatchRecord) error {
			return enc.Encode(r)
		}, IsBrokenPipe)
		return &jsonlMatchWriter{in: in, done: done}, nil
	default:
		return nil, fmt.Errorf("unknown match format %q", format)
	}
}

type textMatchWriter struct {
	bw  *bufio.Writer
	err error
}

func (w *textMatchWriter) Emit(r MatchRecord) error {
	if w.err != nil {
		return w.err
	}
	_, err := fmt.Fprintf(w.bw, "%d\t%d\t%d\t%d\n", r.I, r.J, r.Start, r.End)
	if err != nil {
		w.err = err
	}
	return err
}

func (w *textMatchWriter) Close() error {
	if w.err != nil && !IsBrokenPipe(w.err) {
		return w.err
	}
	if err := w.bw.Flush(); err != nil && !IsBrokenPipe(err) {
		return err
	}
	return nil
}

type jsonlMatchWriter struct {
	in   chan<- MatchRecord
	done <-chan error
}

func (w *jsonlMatchWriter) Emit(r MatchRecord) error {
	w.in <- r
	return nil
}

func (w *jsonlMatchWriter) Close() error {
	close(w.in)
	return <-w.done
}
