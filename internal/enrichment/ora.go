package enrichment

import (
	"sort"

	"github.com/tfta-mcp-server/internal/domain"
)

const (
	// DefaultLimit is the number of ranked terms returned by default.
	DefaultLimit = 30
	// DefaultAlpha is both the raw p-value pre-filter and the corrected
	// p-value cutoff.
	DefaultAlpha = 0.01
	// MinOverlap is the smallest study overlap worth testing.
	MinOverlap = 2
)

// GeneSet is a named set of genes, such as one pathway.
type GeneSet struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Source string   `json:"source,omitempty"`
	Genes  []string `json:"genes"`
}

// Options tune an enrichment run. Zero values take the defaults.
type Options struct {
	Limit     int
	Alpha     float64
	Corrector Corrector
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Alpha <= 0 {
		o.Alpha = DefaultAlpha
	}
	if o.Corrector == nil {
		o.Corrector = Bonferroni{}
	}
	return o
}

// ORA runs an over-representation analysis of study against every set of a
// collection. Sets overlapping the study in fewer than MinOverlap genes are
// skipped, the rest get a one-sided hypergeometric p-value, those under Alpha
// are corrected together and ranked by corrected p-value. The ranked list
// stops at Limit or at the first corrected p-value above Alpha.
//
// Study genes missing from population are added to it so the test stays
// well defined.
func ORA(study, population []string, sets []GeneSet, opts Options) []domain.EnrichmentResult {
	opts = opts.withDefaults()

	studySet := toSet(study)
	popSet := toSet(population)
	for g := range studySet {
		popSet[g] = true
	}
	popSize, studySize := len(popSet), len(studySet)
	if studySize == 0 || popSize == 0 {
		return nil
	}

	var tested []domain.EnrichmentResult
	for _, set := range sets {
		var overlap []string
		popCount := 0
		for _, g := range dedupeStrings(set.Genes) {
			if popSet[g] {
				popCount++
			}
			if studySet[g] {
				overlap = append(overlap, g)
			}
		}
		if len(overlap) < MinOverlap {
			continue
		}

		p := HypergeomSF(len(overlap), popSize, popCount, studySize)
		if p >= opts.Alpha {
			continue
		}
		sort.Strings(overlap)
		tested = append(tested, domain.EnrichmentResult{
			TermID:     set.ID,
			TermName:   set.Name,
			Namespace:  set.Source,
			PValue:     p,
			StudyCount: len(overlap),
			StudySize:  studySize,
			PopCount:   popCount,
			PopSize:    popSize,
			Enriched:   true,
			Genes:      overlap,
		})
	}
	if len(tested) == 0 {
		return []domain.EnrichmentResult{}
	}

	raw := make([]float64, len(tested))
	for i, r := range tested {
		raw[i] = r.PValue
	}
	for i, c := range opts.Corrector.Correct(raw) {
		tested[i].PCorrected = c
	}

	sort.SliceStable(tested, func(i, j int) bool {
		if tested[i].PCorrected != tested[j].PCorrected {
			return tested[i].PCorrected < tested[j].PCorrected
		}
		if tested[i].PValue != tested[j].PValue {
			return tested[i].PValue < tested[j].PValue
		}
		return tested[i].TermID < tested[j].TermID
	})

	ranked := make([]domain.EnrichmentResult, 0, opts.Limit)
	for _, r := range tested {
		if len(ranked) >= opts.Limit || r.PCorrected > opts.Alpha {
			break
		}
		ranked = append(ranked, r)
	}
	return ranked
}

func toSet(genes []string) map[string]bool {
	set := make(map[string]bool, len(genes))
	for _, g := range genes {
		if g != "" {
			set[g] = true
		}
	}
	return set
}

func dedupeStrings(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, x := range list {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
