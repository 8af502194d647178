package enrichment

import (
	"sort"

	"github.com/tfta-mcp-server/internal/domain"
)

// GOStudy tests every GO term of an annotation corpus for enrichment or
// depletion in a study gene list.
type GOStudy struct {
	assoc map[string][]string
	terms map[string]domain.GOTerm
	dag   *DAG
}

// NewGOStudy prepares a study over gene -> GO id annotations. With a DAG and
// propagate set, each gene is also annotated to all ancestors of its terms.
// terms supplies names and namespaces for ids the DAG does not know.
func NewGOStudy(assoc map[string][]string, terms map[string]domain.GOTerm, dag *DAG, propagate bool) *GOStudy {
	if dag != nil && propagate {
		assoc = dag.Propagate(assoc)
	}
	return &GOStudy{assoc: assoc, terms: terms, dag: dag}
}

// Population returns the annotated genes, the default background.
func (s *GOStudy) Population() []string {
	pop := make([]string, 0, len(s.assoc))
	for g := range s.assoc {
		pop = append(pop, g)
	}
	sort.Strings(pop)
	return pop
}

// Run tests study against population (the annotated genes when empty) with a
// two-sided Fisher exact test per term, Bonferroni-corrects over all tested
// terms and keeps corrected p <= Alpha. Results are ordered enriched before
// purified, then by raw p-value, and truncated to Limit.
func (s *GOStudy) Run(study, population []string, opts Options) []domain.EnrichmentResult {
	opts = opts.withDefaults()
	if len(population) == 0 {
		population = s.Population()
	}

	popSet := toSet(population)
	studySet := make(map[string]bool)
	for _, g := range study {
		if popSet[g] {
			studySet[g] = true
		}
	}
	popSize, studySize := len(popSet), len(studySet)
	if popSize == 0 || studySize == 0 {
		return []domain.EnrichmentResult{}
	}

	popCount := make(map[string]int)
	studyGenes := make(map[string][]string)
	for g := range popSet {
		for _, id := range s.assoc[g] {
			popCount[id]++
			if studySet[g] {
				studyGenes[id] = append(studyGenes[id], g)
			}
		}
	}

	ids := make([]string, 0, len(popCount))
	for id := range popCount {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]domain.EnrichmentResult, 0, len(ids))
	raw := make([]float64, 0, len(ids))
	for _, id := range ids {
		k := len(studyGenes[id])
		p := FisherTwoSided(k, popSize, popCount[id], studySize)
		genes := studyGenes[id]
		sort.Strings(genes)

		term := s.term(id)
		results = append(results, domain.EnrichmentResult{
			TermID:     id,
			TermName:   term.Name,
			Namespace:  term.Namespace,
			PValue:     p,
			StudyCount: k,
			StudySize:  studySize,
			PopCount:   popCount[id],
			PopSize:    popSize,
			Enriched:   float64(k)/float64(studySize) > float64(popCount[id])/float64(popSize),
			Genes:      genes,
		})
		raw = append(raw, p)
	}
	for i, c := range (Bonferroni{}).Correct(raw) {
		results[i].PCorrected = c
	}

	kept := results[:0]
	for _, r := range results {
		if r.PCorrected <= opts.Alpha {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Enriched != kept[j].Enriched {
			return kept[i].Enriched
		}
		return kept[i].PValue < kept[j].PValue
	})
	if len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}
	return kept
}

func (s *GOStudy) term(id string) domain.GOTerm {
	if s.dag != nil {
		if t, ok := s.dag.Term(id); ok {
			return t
		}
	}
	if t, ok := s.terms[id]; ok {
		return t
	}
	return domain.GOTerm{ID: id}
}
