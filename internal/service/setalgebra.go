package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tfta-mcp-server/internal/domain"
)

// FamilyPolicy decides what a query does with a family participant.
type FamilyPolicy int

const (
	// FamilyUnion treats a family as the union of its members' results.
	FamilyUnion FamilyPolicy = iota
	// FamilyClarify rejects a family with FAMILY_NAME and lists its members.
	FamilyClarify
	// FamilyReject rejects a family with FAMILY_NAME_NOT_ALLOWED.
	FamilyReject
)

// Source selects where a query takes its relations from.
type Source int

const (
	SourceDB Source = iota
	SourceLiterature
	SourceBoth
)

// ParseSource maps a literature keyword to a Source.
func ParseSource(s string) Source {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "literature", "true", "yes":
		return SourceLiterature
	case "both", "all":
		return SourceBoth
	}
	return SourceDB
}

// Qualifiers configure one set-algebra query.
type Qualifiers struct {
	Direction domain.Direction
	Tissue    string
	OfThose   []string
	Families  FamilyPolicy
	Strength  domain.Strength
	Source    Source
	Keyword   string
	Database  string
	Limit     int
}

// Participant is one resolved entity of a combinational query together with
// the reason raised when it has no rows for the relation.
type Participant struct {
	Entity   domain.ResolvedEntity
	NotFound domain.Reason
}

// lookupFunc fetches the related items of one symbol.
type lookupFunc func(ctx context.Context, symbol string) ([]string, error)

// checkFamilies enforces a family policy over participants.
func checkFamilies(participants []Participant, policy FamilyPolicy) error {
	for _, p := range participants {
		if p.Entity.Kind != domain.KindFamily {
			continue
		}
		switch policy {
		case FamilyClarify:
			return domain.NewFailure(domain.ReasonFamilyName, p.Entity.Name).
				WithClarification(&domain.Clarification{
					Type:   "family",
					As:     p.Entity.Members,
					Agents: []domain.Candidate{p.Entity.Candidate()},
				})
		case FamilyReject:
			return domain.NewFailure(domain.ReasonFamilyNameNotAllowed, p.Entity.Name)
		}
	}
	return nil
}

// fetchAll computes every participant's item set concurrently. Results are
// indexed like participants.
func fetchAll(ctx context.Context, participants []Participant, lookup lookupFunc, parallelism int) ([][]string, error) {
	sets := make([][]string, len(participants))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, p := range participants {
		g.Go(func() error {
			set, err := participantSet(gctx, p.Entity, lookup, parallelism)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

// participantSet returns the items of one entity: the lookup result of a
// single gene, or the union over a family's members in member order.
func participantSet(ctx context.Context, e domain.ResolvedEntity, lookup lookupFunc, parallelism int) ([]string, error) {
	genes := e.Genes()
	if len(genes) == 1 {
		items, err := lookup(ctx, genes[0])
		return dedupe(items), err
	}

	results := make([][]string, len(genes))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, gene := range genes {
		g.Go(func() error {
			items, err := lookup(gctx, gene)
			results[i] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return union(results...), nil
}

// IntersectAll intersects the participants' item sets in input order. The
// first participant, in input order, with an empty set fails the whole query
// with its NotFound reason. The result keeps the first set's order.
func IntersectAll(ctx context.Context, participants []Participant, lookup lookupFunc, parallelism int) ([]string, error) {
	sets, err := fetchAll(ctx, participants, lookup, parallelism)
	if err != nil {
		return nil, err
	}
	var result []string
	for i, p := range participants {
		if len(sets[i]) == 0 {
			return nil, domain.NewFailure(p.NotFound, p.Entity.Label())
		}
		if i == 0 {
			result = sets[i]
			continue
		}
		result = intersect(result, sets[i])
	}
	return result, nil
}

// Restrict keeps the items that appear in allow, compared case-insensitively.
// An empty allow list restricts nothing.
func Restrict(items, allow []string) []string {
	if len(allow) == 0 {
		return items
	}
	keep := make(map[string]bool, len(allow))
	for _, a := range allow {
		keep[strings.ToUpper(strings.TrimSpace(a))] = true
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if keep[strings.ToUpper(it)] {
			out = append(out, it)
		}
	}
	return out
}

// RankByCount counts in how many lists each item appears, ranks by count
// descending with ties kept in first-seen order, drops items seen once and
// truncates to limit.
func RankByCount(lists [][]string, limit int) []domain.RankedItem {
	counts := make(map[string]int)
	var order []string
	for _, list := range lists {
		for _, item := range dedupe(list) {
			if counts[item] == 0 {
				order = append(order, item)
			}
			counts[item]++
		}
	}

	ranked := make([]domain.RankedItem, 0, len(order))
	for _, item := range order {
		if counts[item] > 1 {
			ranked = append(ranked, domain.RankedItem{Name: item, Count: counts[item]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// CommonThreshold is the count an item needs to be shared by a list of n
// inputs: max(2, ceil(n/2)), relaxed to 2 when the best observed count is at
// least 2 but below that bar. ok is false when no item reaches 2.
func CommonThreshold(n, maxCount int) (bar int, ok bool) {
	if maxCount < 2 {
		return 0, false
	}
	bar = int(math.Ceil(float64(n) / 2))
	if bar < 2 {
		bar = 2
	}
	if maxCount < bar {
		bar = 2
	}
	return bar, true
}

// CommonItems keeps the ranked items meeting CommonThreshold for n inputs.
func CommonItems(n int, counted []domain.RankedItem) ([]domain.RankedItem, bool) {
	maxCount := 0
	for _, c := range counted {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	bar, ok := CommonThreshold(n, maxCount)
	if !ok {
		return nil, false
	}
	var out []domain.RankedItem
	for _, c := range counted {
		if c.Count >= bar {
			out = append(out, c)
		}
	}
	return out, true
}

func intersect(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	out := make([]string, 0, len(a))
	for _, x := range a {
		if in[x] {
			out = append(out, x)
		}
	}
	return out
}

func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, x := range list {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}
	return out
}

func dedupe(list []string) []string {
	return union(list)
}

func contains(list []string, item string) bool {
	for _, x := range list {
		if strings.EqualFold(x, item) {
			return true
		}
	}
	return false
}
