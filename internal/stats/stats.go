// Package stats computes the -stats summary: site count, mean/variance of
// minor-allele frequency, mean divergence at the final site, and encoded
// bytes per site. Grounded on cristian1one-virtual-vectorfs's go.mod
// (gonum.org/v1/gonum is a direct dependency there for its k-d tree); this
// package exercises stat.Mean/stat.Variance instead.
package stats

import "gonum.org/v1/gonum/stat"

// Summary is the panel-level report printed by -stats.
type Summary struct {
	Sites             int     `json:"sites"`
	Haplotypes        int     `json:"haplotypes"`
	MeanMinorFreq     float64 `json:"meanMinorFreq"`
	VarianceMinorFreq float64 `json:"varianceMinorFreq"`
	MeanFinalDivergence float64 `json:"meanFinalDivergence"`
	BytesPerSite      float64 `json:"bytesPerSite"`
}

// Summarize computes Summary from per-site minor-allele frequencies
// (minorFreq[k] = min(f[k], M-f[k])/M), the divergence array at the final
// site, and the encoded stream length.
func Summarize(m, n int, minorFreq []float64, finalDivergence []int, streamLen int) Summary {
	s := Summary{Sites: n, Haplotypes: m}
	if n == 0 {
		return s
	}
	if len(minorFreq) > 0 {
		s.MeanMinorFreq = stat.Mean(minorFreq, nil)
		if len(minorFreq) > 1 {
			s.VarianceMinorFreq = stat.Variance(minorFreq, nil)
		}
	}
	if len(finalDivergence) > 0 {
		d := make([]float64, len(finalDivergence))
		for i, v := range finalDivergence {
			d[i] = float64(v)
		}
		s.MeanFinalDivergence = stat.Mean(d, nil)
	}
	s.BytesPerSite = float64(streamLen) / float64(n)
	return s
}
