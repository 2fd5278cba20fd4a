package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildColumn(runs ...struct {
	sym byte
	n   int
}) []byte {
	total := 0
	for _, r := range runs {
		total += r.n
	}
	col := make([]byte, total+1)
	i := 0
	for _, r := range runs {
		for j := 0; j < r.n; j++ {
			col[i] = r.sym
			i++
		}
	}
	col[total] = 2 // sentinel
	return col
}

// S2 — codec round trip (spec.md §8 scenario S2).
func TestRoundTripThreeRuns(t *testing.T) {
	m := 1000 + 1000 + 70
	col := buildColumn(
		struct{ sym byte; n int }{0, 1000},
		struct{ sym byte; n int }{1, 1000},
		struct{ sym byte; n int }{0, 70},
	)
	out := make([]byte, m+8)
	n := Encode(col, m, out)
	require.Greater(t, n, 0)

	decoded := make([]byte, m)
	read, ones := Decode(out[:n], m, decoded)
	require.Equal(t, n, read, "decode must consume exactly what encode wrote")
	require.Equal(t, 1000, ones, "ones_count must equal sum(column)")
	require.Equal(t, col[:m], decoded)
}

func TestEncodeDecodeIdentityAlternatingColumns(t *testing.T) {
	lengths := []int{0, 1, 63, 64, 65, 1983, 1984, 1985, 63487, 63488, 63489, 200}
	for _, m := range lengths {
		col := make([]byte, m+1)
		// flip the symbol every 7 positions, so every run has length <= 7
		sym := byte(0)
		for i := 0; i < m; i++ {
			if i%7 == 0 {
				sym ^= 1
			}
			col[i] = sym
		}
		col[m] = 2

		out := make([]byte, m*2+8)
		n := Encode(col, m, out)

		decoded := make([]byte, m)
		read, ones := Decode(out[:n], m, decoded)
		if read != n {
			t.Fatalf("m=%d: decode read %d bytes, encode wrote %d", m, read, n)
		}
		want := 0
		for i := 0; i < m; i++ {
			if col[i] == 1 {
				want++
			}
		}
		if ones != want {
			t.Fatalf("m=%d: ones=%d want %d", m, ones, want)
		}
		for i := 0; i < m; i++ {
			if decoded[i] != col[i] {
				t.Fatalf("m=%d: decoded[%d]=%d want %d", m, i, decoded[i], col[i])
			}
		}
	}
}

func TestAllZeroColumnDivisibleBy64HasNoShortTail(t *testing.T) {
	m := 128 // 2 * 64, exact medium-tier multiple
	col := make([]byte, m+1)
	col[m] = 2
	out := make([]byte, m+8)
	n := Encode(col, m, out)
	require.Equal(t, 1, n, "exact 64-multiple all-zero run needs exactly one byte")
	require.Equal(t, byte(0x40|2), out[0])
}

func TestNoZeroLengthRunEmitted(t *testing.T) {
	col := buildColumn(struct{ sym byte; n int }{0, 5}, struct{ sym byte; n int }{1, 5})
	out := make([]byte, 16)
	n := Encode(col, 10, out)
	require.NotZero(t, n)
	ensureDecodeLen()
	for _, b := range out[:n] {
		if decodeLen[b&0x7F] == 0 {
			t.Fatalf("zero-length run byte emitted: %x", b)
		}
	}
}

func TestDecodeStopsAtExactlyM(t *testing.T) {
	col := buildColumn(struct{ sym byte; n int }{1, 300})
	out := make([]byte, 16)
	n := Encode(col, 300, out)
	decoded := make([]byte, 300)
	read, ones := Decode(out[:n], 300, decoded)
	require.Equal(t, n, read)
	require.Equal(t, 300, ones)
}
