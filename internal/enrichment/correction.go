package enrichment

import (
	"fmt"
	"sort"
	"strings"
)

// Corrector adjusts a family of p-values for multiple testing. The result is
// in input order.
type Corrector interface {
	Name() string
	Correct(p []float64) []float64
}

// NewCorrector returns the corrector for a method name: bonferroni, holm or fdr_bh.
func NewCorrector(method string) (Corrector, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", "bonferroni":
		return Bonferroni{}, nil
	case "holm":
		return Holm{}, nil
	case "fdr_bh", "bh", "benjamini-hochberg":
		return BenjaminiHochberg{}, nil
	}
	return nil, fmt.Errorf("unknown correction method %q", method)
}

// Bonferroni multiplies each p-value by the number of tests.
type Bonferroni struct{}

func (Bonferroni) Name() string { return "bonferroni" }

func (Bonferroni) Correct(p []float64) []float64 {
	m := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = clamp(v * m)
	}
	return out
}

// Holm is the step-down Bonferroni method.
type Holm struct{}

func (Holm) Name() string { return "holm" }

func (Holm) Correct(p []float64) []float64 {
	m := len(p)
	order := ascending(p)
	out := make([]float64, m)
	running := 0.0
	for rank, i := range order {
		adj := clamp(float64(m-rank) * p[i])
		if adj > running {
			running = adj
		}
		out[i] = running
	}
	return out
}

// BenjaminiHochberg controls the false discovery rate.
type BenjaminiHochberg struct{}

func (BenjaminiHochberg) Name() string { return "fdr_bh" }

func (BenjaminiHochberg) Correct(p []float64) []float64 {
	m := len(p)
	order := ascending(p)
	out := make([]float64, m)
	running := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		i := order[rank]
		adj := clamp(p[i] * float64(m) / float64(rank+1))
		if adj < running {
			running = adj
		}
		out[i] = running
	}
	return out
}

func ascending(p []float64) []int {
	order := make([]int, len(p))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })
	return order
}
