package panelio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ipcr-core/panel"
)

func buildPanel(t *testing.T) *panel.Panel {
	t.Helper()
	haps := [][]byte{
		{0, 1, 0, 1, 1},
		{1, 0, 0, 1, 0},
		{0, 0, 1, 0, 1},
		{1, 1, 1, 0, 0},
	}
	p := panel.New(len(haps))
	col := make([]byte, len(haps))
	for k := 0; k < len(haps[0]); k++ {
		for h := range haps {
			col[h] = haps[h][k]
		}
		require.NoError(t, p.AppendColumn(col, k*7))
	}
	return p
}

func TestWriteReadPanelRoundTrip(t *testing.T) {
	p := buildPanel(t)
	var buf bytes.Buffer
	require.NoError(t, WritePanelTo(p, &buf))

	got, err := ReadPanelFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, p.M, got.M)
	require.Equal(t, p.N, got.N)
	require.Equal(t, p.Stream, got.Stream)
}

// S6 — file interop: write, read back, re-write is byte-for-byte identical.
func TestFileRoundTripIsByteIdentical(t *testing.T) {
	p := buildPanel(t)
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.pbwt")
	path2 := filepath.Join(dir, "b.pbwt")

	require.NoError(t, WritePanel(p, path1))
	got, err := ReadPanel(path1)
	require.NoError(t, err)
	require.NoError(t, WritePanel(got, path2))

	b1, err := os.ReadFile(path1)
	require.NoError(t, err)
	b2, err := os.ReadFile(path2)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestReadPanelRejectsBadTag(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	buf.Write(make([]byte, 12))
	_, err := ReadPanelFrom(buf)
	require.Error(t, err)
}

func TestSitesRoundTripAndMismatchDropsMetadata(t *testing.T) {
	p := buildPanel(t)
	dir := t.TempDir()
	sitesPath := filepath.Join(dir, "a.sites")
	require.NoError(t, WriteSites(p, sitesPath))

	fresh := buildPanel(t)
	for i := range fresh.Sites {
		fresh.Sites[i].X = 0
	}
	ok, err := ReadSites(fresh, sitesPath)
	require.NoError(t, err)
	require.True(t, ok)
	for k, s := range fresh.Sites {
		require.Equal(t, p.Sites[k].X, s.X)
	}

	// A sites file with too few lines must drop metadata, not error.
	require.NoError(t, os.WriteFile(sitesPath, []byte("1\n2\n"), 0o644))
	mismatched := buildPanel(t)
	ok, err = ReadSites(mismatched, sitesPath)
	require.NoError(t, err)
	require.False(t, ok)
}
