package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/repository"
)

// Resolver turns entity references into queryable gene symbols, families
// and miRNA names.
type Resolver struct {
	store    *repository.LookupStore
	expander domain.FamilyExpander
	symbols  *SymbolIndex
	logger   *logrus.Logger
}

// NewResolver creates a resolver. A nil expander never expands families.
func NewResolver(store *repository.LookupStore, expander domain.FamilyExpander, symbols *SymbolIndex, logger *logrus.Logger) *Resolver {
	if expander == nil {
		expander = NoopExpander{}
	}
	return &Resolver{
		store:    store,
		expander: expander,
		symbols:  symbols,
		logger:   logger,
	}
}

// ResolveGene resolves a gene or protein reference. missing is the reason
// returned when the reference is empty or grounds to nothing.
//
// A reference with one gene grounding is a single gene. A family grounding is
// expanded and becomes a family when it has at least one member. Several
// distinct gene groundings make the reference ambiguous. A bare name is a
// single gene unless it is unknown and the expander recognises it as a group.
func (r *Resolver) ResolveGene(ctx context.Context, ref domain.EntityRef, missing domain.Reason) (domain.ResolvedEntity, error) {
	name := strings.TrimSpace(ref.Name)
	if name == "" && len(ref.Groundings) == 0 {
		return domain.ResolvedEntity{}, domain.NewFailure(missing, "")
	}

	if len(ref.Groundings) == 0 {
		symbol := strings.ToUpper(name)
		if r.symbols == nil || !r.symbols.Known(ctx, symbol) {
			if members := r.expand(ctx, ref); len(members) > 0 {
				return domain.ResolvedEntity{Kind: domain.KindFamily, Name: name, Members: members}, nil
			}
		}
		return domain.ResolvedEntity{Kind: domain.KindSingleGene, Name: name, Symbol: symbol}, nil
	}

	var genes []string
	seen := make(map[string]bool)
	for _, g := range ref.Groundings {
		if g.IsFamily() {
			members := r.expand(ctx, domain.EntityRef{Name: firstNonEmpty(g.Name, name), Groundings: []domain.Grounding{g}})
			if len(members) > 0 {
				return domain.ResolvedEntity{
					Kind:    domain.KindFamily,
					Name:    firstNonEmpty(g.Name, name),
					Members: members,
				}, nil
			}
			continue
		}
		if g.IsGene() {
			symbol := strings.ToUpper(firstNonEmpty(g.Name, name))
			if symbol != "" && !seen[symbol] {
				seen[symbol] = true
				genes = append(genes, symbol)
			}
		}
	}

	switch len(genes) {
	case 0:
		return domain.ResolvedEntity{}, domain.NewFailure(missing, name)
	case 1:
		return domain.ResolvedEntity{Kind: domain.KindSingleGene, Name: firstNonEmpty(name, genes[0]), Symbol: genes[0]}, nil
	}
	return domain.ResolvedEntity{Kind: domain.KindAmbiguous, Name: name, Candidates: genes}, nil
}

func (r *Resolver) expand(ctx context.Context, ref domain.EntityRef) []string {
	members, err := r.expander.Expand(ctx, ref)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"entity": ref.Name,
			"error":  err,
		}).Warn("Family expansion failed, treating reference as a single name")
		return nil
	}
	return members
}

// ResolveMiRNA resolves a miRNA name against the miRNA-target table. A miss
// with same-prefix variants in the store is MIRNA_NOT_FOUND carrying them as
// clarification; a miss with none is NO_SIMILAR_MIRNA.
func (r *Resolver) ResolveMiRNA(ctx context.Context, raw string) (domain.ResolvedEntity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ResolvedEntity{}, domain.NewFailure(domain.ReasonNoMiRNAName, "")
	}

	forms := miRNAForms(raw)
	for _, form := range forms {
		stored, ok, err := r.store.MiRNAExact(ctx, form)
		if err != nil {
			return domain.ResolvedEntity{}, err
		}
		if ok {
			return domain.ResolvedEntity{Kind: domain.KindMiRNA, Name: raw, Symbol: stored}, nil
		}
	}

	var candidates []string
	seen := make(map[string]bool)
	for _, form := range forms {
		found, err := r.store.MiRNAPrefix(ctx, form)
		if err != nil {
			return domain.ResolvedEntity{}, err
		}
		for _, c := range found {
			if !seen[c] {
				seen[c] = true
				candidates = append(candidates, c)
			}
		}
	}

	if len(candidates) == 0 {
		return domain.ResolvedEntity{}, domain.NewFailure(domain.ReasonNoSimilarMiRNA, raw)
	}
	return domain.ResolvedEntity{}, domain.NewFailure(domain.ReasonMiRNANotFound, raw).
		WithClarification(&domain.Clarification{Type: "mirna", As: candidates})
}

var miRNAPattern = regexp.MustCompile(`^(hsa-)?(mir|let)-?(\d+[a-z]?)(-\d+)?(-[35]p)?$`)

// NormalizeMiRNA canonicalises casing and hyphenation of a miRNA name, e.g.
// MIR20B -> miR-20b, hsa-mir-21-5P -> hsa-miR-21-5p, LET7A -> let-7a.
// Names that do not look like miRNAs are returned trimmed.
func NormalizeMiRNA(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Replace(s, "microrna", "mir", 1)
	s = strings.Join(strings.Fields(s), "-")

	m := miRNAPattern.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(raw)
	}
	family := "miR-"
	if m[2] == "let" {
		family = "let-"
	}
	return m[1] + family + m[3] + m[4] + m[5]
}

// miRNAForms lists the names probed for a raw miRNA, with and without the
// human species prefix.
func miRNAForms(raw string) []string {
	n := NormalizeMiRNA(raw)
	forms := []string{n}
	if strings.HasPrefix(n, "hsa-") {
		forms = append(forms, strings.TrimPrefix(n, "hsa-"))
	} else {
		forms = append(forms, "hsa-"+n)
	}
	if n != raw {
		forms = append(forms, raw)
	}
	return forms
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// NoopExpander recognises no families.
type NoopExpander struct{}

// Expand implements domain.FamilyExpander
func (NoopExpander) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	return nil, nil
}

// StaticExpander expands families from a fixed table keyed by upper-case
// family name or grounding id.
type StaticExpander map[string][]string

// Expand implements domain.FamilyExpander
func (s StaticExpander) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	for _, g := range ref.Groundings {
		if members, ok := s[strings.ToUpper(g.ID)]; ok {
			return members, nil
		}
	}
	return s[strings.ToUpper(strings.TrimSpace(ref.Name))], nil
}

// CachingExpander memoises another expander's results with a size bound and
// a TTL. Errors are not cached.
type CachingExpander struct {
	next  domain.FamilyExpander
	cache *expirable.LRU[string, []string]
}

// NewCachingExpander wraps next with an expiring LRU cache.
func NewCachingExpander(next domain.FamilyExpander, size int, ttl time.Duration) *CachingExpander {
	if size <= 0 {
		size = 1000
	}
	return &CachingExpander{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

// Expand implements domain.FamilyExpander
func (c *CachingExpander) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	key := expansionKey(ref)
	if members, ok := c.cache.Get(key); ok {
		return members, nil
	}
	members, err := c.next.Expand(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, members)
	return members, nil
}

// Refresh drops all cached expansions
func (c *CachingExpander) Refresh() {
	c.cache.Purge()
}

// Len returns the number of cached expansions
func (c *CachingExpander) Len() int {
	return c.cache.Len()
}

func expansionKey(ref domain.EntityRef) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(ref.Name)))
	for _, g := range ref.Groundings {
		fmt.Fprintf(&b, "|%s:%s", strings.ToUpper(g.Namespace), g.ID)
	}
	return b.String()
}
