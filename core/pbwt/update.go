// Package pbwt implements the positional Burrows-Wheeler Transform update
// and match-enumeration algorithms over a permutation array a, a divergence
// array d, and a sorted allele column y.
//
// The functions here are pure: they read and write caller-supplied slices
// and allocate no panel-level state of their own. core/panel owns the a/d/y
// buffers across the lifetime of a construction and drives these functions
// once per site.
package pbwt

// State holds the permutation and divergence arrays that the updater
// advances one site at a time, plus the scratch buffers the in-place
// partition needs. A is length M; D is length M+1 (indices 0 and M are
// sentinels).
type State struct {
	M int
	A []int
	D []int

	scratchA []int
	scratchD []int
}

// NewState allocates a State for M haplotypes with the identity permutation
// and zeroed divergence (matching spec.md's initial conditions: a[i]=i,
// d[i]=0).
func NewState(m int) *State {
	s := &State{
		M:        m,
		A:        make([]int, m),
		D:        make([]int, m+1),
		scratchA: make([]int, m),
		scratchD: make([]int, m+1),
	}
	for i := range s.A {
		s.A[i] = i
	}
	return s
}

// UpdateAOnly advances A by one site given the sorted column y, without
// tracking divergence. y must have length >= M; only y[0:M] is read.
func (s *State) UpdateAOnly(y []byte) {
	m := s.M
	u := 0
	b := s.scratchA
	for i := 0; i < m; i++ {
		if y[i] == 0 {
			s.A[u] = s.A[i]
			u++
		} else {
			b[i-u] = s.A[i]
		}
	}
	copy(s.A[u:], b[:m-u])
}

// UpdateAAndD advances both A and D by one site k given the sorted column
// y, implementing Durbin's Algorithm 2. k is the 0-based index of the site
// just consumed.
func (s *State) UpdateAAndD(y []byte, k int) {
	m := s.M
	p := k + 1
	q := k + 1
	u := 0
	bA, bD := s.scratchA, s.scratchD
	for i := 0; i < m; i++ {
		if s.D[i] > p {
			p = s.D[i]
		}
		if s.D[i] > q {
			q = s.D[i]
		}
		if y[i] == 0 {
			s.A[u] = s.A[i]
			s.D[u] = p
			p = 0
			u++
		} else {
			bA[i-u] = s.A[i]
			bD[i-u] = q
			q = 0
		}
	}
	copy(s.A[u:], bA[:m-u])
	copy(s.D[u:], bD[:m-u])
	s.D[0] = k + 2
	s.D[m] = k + 2
}
