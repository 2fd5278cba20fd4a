package pbwt

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// construct drives UpdateAAndD over a haplotype matrix site by site,
// invoking the long and maximal reporters before each update (matching the
// report-then-update calling convention a correct driver must use), and
// finally flushing both reporters once more at k=N.
func construct(t *testing.T, haps [][]byte, threshold int) (long, maximal []Match) {
	t.Helper()
	m := len(haps)
	n := len(haps[0])
	st := NewState(m)

	collect := func(dst *[]Match) Sink {
		return func(mt Match) error {
			*dst = append(*dst, mt)
			return nil
		}
	}

	y := make([]byte, m)
	for k := 0; k < n; k++ {
		for i := 0; i < m; i++ {
			y[i] = haps[st.A[i]][k]
		}
		require.NoError(t, LongMatches(y, st.A, st.D, m, k, threshold, false, collect(&long)))
		require.NoError(t, MaximalMatches(y, st.A, st.D, m, k, false, collect(&maximal)))
		st.UpdateAAndD(y, k)
	}
	require.NoError(t, LongMatches(nil, st.A, st.D, m, n, threshold, true, collect(&long)))
	require.NoError(t, MaximalMatches(nil, st.A, st.D, m, n, true, collect(&maximal)))
	return long, maximal
}

func normalize(ms []Match) []Match {
	out := make([]Match, len(ms))
	copy(out, ms)
	for i := range out {
		if out[i].I > out[i].J {
			out[i].I, out[i].J = out[i].J, out[i].I
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		if out[a].J != out[b].J {
			return out[a].J < out[b].J
		}
		if out[a].Start != out[b].Start {
			return out[a].Start < out[b].Start
		}
		return out[a].End < out[b].End
	})
	return out
}

func contains(ms []Match, want Match) bool {
	for _, m := range ms {
		if m == want {
			return true
		}
	}
	return false
}

// S1 — tiny panel (spec.md §8).
func TestLongMatchesS1(t *testing.T) {
	haps := [][]byte{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 1},
	}
	for _, threshold := range []int{4, 5} {
		long, _ := construct(t, haps, threshold)
		got := normalize(long)
		require.True(t, contains(got, Match{I: 0, J: 1, Start: 0, End: 5}),
			"threshold=%d: expected (0,1,0,5) among %v", threshold, got)
		for _, m := range got {
			require.NotEqual(t, m.I, m.J, "self-match")
			require.Less(t, m.Start, m.End, "zero-length match")
			require.GreaterOrEqual(t, m.End-m.Start, threshold)
		}
	}
}

// S3 — maximal vs long (spec.md §8).
func TestMaximalMatchesS3(t *testing.T) {
	haps := [][]byte{
		{0, 1, 1, 0},
		{0, 1, 0, 0},
		{0, 1, 1, 1},
	}
	_, maximal := construct(t, haps, 0)
	got := normalize(maximal)
	require.True(t, contains(got, Match{I: 0, J: 1, Start: 0, End: 2}), "%v", got)
	require.True(t, contains(got, Match{I: 0, J: 2, Start: 0, End: 3}), "%v", got)
	require.False(t, contains(got, Match{I: 1, J: 2, Start: 0, End: 1}), "%v", got)
	for _, m := range got {
		require.NotEqual(t, m.I, m.J)
		require.Less(t, m.Start, m.End)
	}
}

// Property 1 — a stays a permutation after every update.
func TestUpdatePreservesPermutation(t *testing.T) {
	haps := [][]byte{
		{0, 1, 0, 1, 1},
		{1, 0, 0, 1, 0},
		{0, 0, 1, 0, 1},
		{1, 1, 1, 0, 0},
		{0, 1, 1, 1, 0},
	}
	m := len(haps)
	n := len(haps[0])
	st := NewState(m)
	y := make([]byte, m)
	for k := 0; k < n; k++ {
		for i := 0; i < m; i++ {
			y[i] = haps[st.A[i]][k]
		}
		st.UpdateAAndD(y, k)

		seen := make([]bool, m)
		for _, v := range st.A {
			require.False(t, seen[v], "duplicate index %d in a at k=%d", v, k)
			seen[v] = true
		}
		require.Equal(t, k+2, st.D[0])
		require.Equal(t, k+2, st.D[m])
		for i := 1; i < m; i++ {
			require.LessOrEqual(t, st.D[i], k+1)
			require.GreaterOrEqual(t, st.D[i], 0)
		}
	}
}

// Property 3 — reconstructing the haplotype matrix from a at each site
// reproduces the input bit for bit.
func TestUpdateReconstructsHaplotypes(t *testing.T) {
	haps := [][]byte{
		{0, 1, 0, 1, 1, 0},
		{1, 0, 0, 1, 0, 1},
		{0, 0, 1, 0, 1, 1},
		{1, 1, 1, 0, 0, 0},
	}
	m := len(haps)
	n := len(haps[0])
	st := NewState(m)
	recon := make([][]byte, m)
	for h := range recon {
		recon[h] = make([]byte, n)
	}
	y := make([]byte, m)
	for k := 0; k < n; k++ {
		for i := 0; i < m; i++ {
			y[i] = haps[st.A[i]][k]
		}
		// y is in the order of a as it stands before site k is folded in,
		// so invert that a to put each allele back under its haplotype.
		for i := 0; i < m; i++ {
			recon[st.A[i]][k] = y[i]
		}
		st.UpdateAAndD(y, k)
	}
	require.Equal(t, haps, recon)
}

func TestUpdateAOnlyMatchesAAndDPermutation(t *testing.T) {
	haps := [][]byte{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 1},
		{1, 1, 1},
	}
	m := len(haps)
	n := len(haps[0])
	stA := NewState(m)
	stB := NewState(m)
	yA := make([]byte, m)
	yB := make([]byte, m)
	for k := 0; k < n; k++ {
		for i := 0; i < m; i++ {
			yA[i] = haps[stA.A[i]][k]
			yB[i] = haps[stB.A[i]][k]
		}
		stA.UpdateAOnly(yA)
		stB.UpdateAAndD(yB, k)
		require.Equal(t, stB.A, stA.A)
	}
}
