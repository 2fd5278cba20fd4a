// Package panelio implements the binary panel framing and the sites text
// file framing (C6): §6's
//
//	offset 0:  4 bytes ASCII  "PBWT"  (accept "GBWT" on read)
//	offset 4:  int32 M
//	offset 8:  int32 N
//	offset 12: int32 n   (stream byte length)
//	offset 16: n bytes   (column stream)
//
// Integer fields are written little-endian: spec.md §9 explicitly calls
// host byte order in the source a portability bug and directs a
// reimplementation to pick little-endian instead.
//
// The file-or-stdin/stdout opening idiom (path "-" means the given stream)
// is grounded on the teacher's core/fasta/open.go.
package panelio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ipcr-core/panel"
	"ipcr-core/perr"
)

const (
	tagCurrent = "PBWT"
	tagLegacy  = "GBWT"
	headerLen  = 16
)

// openReader opens path for reading, treating "-" as stdin. The returned
// closer is a no-op for stdin.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, perr.IO(err, "open %s", path)
	}
	return fh, nil
}

// openWriter opens path for writing, treating "-" as stdout.
func openWriter(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, perr.IO(err, "create %s", path)
	}
	return fh, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// WritePanel writes p's binary framing to path ("-" for stdout).
func WritePanel(p *panel.Panel, path string) error {
	w, err := openWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return WritePanelTo(p, w)
}

// WritePanelTo writes p's binary framing to an arbitrary writer.
func WritePanelTo(p *panel.Panel, w io.Writer) error {
	bw := bufio.NewWriter(w)
	var hdr [headerLen]byte
	copy(hdr[0:4], tagCurrent)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(p.M))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(p.N))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(p.Stream)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return perr.IO(err, "write panel header")
	}
	if _, err := bw.Write(p.Stream); err != nil {
		return perr.IO(err, "write panel stream")
	}
	return bw.Flush()
}

// ReadPanel reads a binary panel file from path ("-" for stdin). It
// recovers per-site 1-counts from the stream but not site coordinates;
// pair with ReadSites for those.
func ReadPanel(path string) (*panel.Panel, error) {
	r, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadPanelFrom(r)
}

// ReadPanelFrom reads a binary panel from an arbitrary reader.
func ReadPanelFrom(r io.Reader) (*panel.Panel, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, perr.Format("truncated panel header: %v", err)
	}
	tag := string(hdr[0:4])
	if tag != tagCurrent && tag != tagLegacy {
		return nil, perr.Format("unrecognized panel tag %q", tag)
	}
	m := int(binary.LittleEndian.Uint32(hdr[4:8]))
	n := int(binary.LittleEndian.Uint32(hdr[8:12]))
	streamLen := int(binary.LittleEndian.Uint32(hdr[12:16]))
	if m < 2 || n < 0 || streamLen < 0 {
		return nil, perr.Shape("impossible panel dimensions M=%d N=%d n=%d", m, n, streamLen)
	}
	stream := make([]byte, streamLen)
	if _, err := io.ReadFull(r, stream); err != nil {
		return nil, perr.Format("truncated panel stream: want %d bytes: %v", streamLen, err)
	}
	return panel.FromStream(m, n, stream), nil
}

// WriteSites writes p's site coordinates, one decimal integer per line, to
// path ("-" for stdout).
func WriteSites(p *panel.Panel, path string) error {
	w, err := openWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	bw := bufio.NewWriter(w)
	for _, s := range p.Sites {
		if _, err := fmt.Fprintln(bw, s.X); err != nil {
			return perr.IO(err, "write sites")
		}
	}
	return bw.Flush()
}

// ReadSites reads a sites text file and attaches the coordinates to p if,
// and only if, the line count matches p.N; a mismatch drops the companion
// data (without erroring the panel read) and returns ok=false, per §6/§7
// ("a mismatch in line count drops site metadata... keep the panel").
func ReadSites(p *panel.Panel, path string) (ok bool, err error) {
	r, err := openReader(path)
	if err != nil {
		return false, err
	}
	defer r.Close()

	var coords []int
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		x, err := strconv.Atoi(line)
		if err != nil {
			return false, perr.Format("sites file: non-integer line %q", line)
		}
		coords = append(coords, x)
	}
	if err := sc.Err(); err != nil {
		return false, perr.IO(err, "read sites")
	}
	if len(coords) != p.N {
		return false, nil
	}
	for k := range p.Sites {
		p.Sites[k].X = coords[k]
	}
	return true, nil
}
