// Package enrichment implements over-representation analysis of gene sets and
// Gene Ontology term enrichment.
//
// Both analyses are pure functions of their inputs: identical study genes,
// population and annotations always give identical ranked results.
package enrichment

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// hypergeometric is the distribution of the number of successes in n draws
// without replacement from a population of N containing K successes.
type hypergeometric struct {
	N, K, n int
}

func (h hypergeometric) support() (lo, hi int) {
	lo = h.n - (h.N - h.K)
	if lo < 0 {
		lo = 0
	}
	hi = h.n
	if h.K < hi {
		hi = h.K
	}
	return lo, hi
}

// logPMF returns log P(X = k); -Inf outside the support.
func (h hypergeometric) logPMF(k int) float64 {
	lo, hi := h.support()
	if k < lo || k > hi {
		return math.Inf(-1)
	}
	return combin.LogGeneralizedBinomial(float64(h.K), float64(k)) +
		combin.LogGeneralizedBinomial(float64(h.N-h.K), float64(h.n-k)) -
		combin.LogGeneralizedBinomial(float64(h.N), float64(h.n))
}

// HypergeomSF returns P(X >= k) for X ~ Hypergeometric(popSize, setSize,
// studySize), equal to scipy's hypergeom.sf(k-1, popSize, setSize, studySize).
func HypergeomSF(k, popSize, setSize, studySize int) float64 {
	h := hypergeometric{N: popSize, K: setSize, n: studySize}
	if !h.valid() {
		return 1
	}
	lo, hi := h.support()
	if k <= lo {
		return 1
	}
	if k > hi {
		return 0
	}
	terms := make([]float64, 0, hi-k+1)
	for i := k; i <= hi; i++ {
		terms = append(terms, h.logPMF(i))
	}
	return clamp(math.Exp(logSumExp(terms)))
}

// FisherTwoSided returns the two-sided Fisher exact p-value of observing k
// annotated genes among studySize, given setSize annotated among popSize.
// Tables at most as likely as the observed one are summed.
func FisherTwoSided(k, popSize, setSize, studySize int) float64 {
	h := hypergeometric{N: popSize, K: setSize, n: studySize}
	if !h.valid() {
		return 1
	}
	lo, hi := h.support()
	if k < lo || k > hi {
		return 0
	}
	observed := h.logPMF(k)
	// Relative tolerance for ties in probability, as in R's fisher.test.
	cutoff := observed + math.Log1p(1e-7)

	var terms []float64
	for i := lo; i <= hi; i++ {
		if lp := h.logPMF(i); lp <= cutoff {
			terms = append(terms, lp)
		}
	}
	return clamp(math.Exp(logSumExp(terms)))
}

func (h hypergeometric) valid() bool {
	return h.N > 0 && h.K >= 0 && h.n >= 0 && h.K <= h.N && h.n <= h.N
}

func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	m := math.Inf(-1)
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	if math.IsInf(m, -1) {
		return m
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - m)
	}
	return m + math.Log(sum)
}

func clamp(p float64) float64 {
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	}
	return p
}
