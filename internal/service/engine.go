package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hbollon/go-edlib"
	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/cache"
	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/enrichment"
	"github.com/tfta-mcp-server/internal/repository"
	"github.com/tfta-mcp-server/pkg/external"
)

const (
	defaultParallelism    = 8
	maxTissueSuggestions  = 5
	tissueSimilarityFloor = 0.7
)

// Dependencies are the collaborators an Engine queries.
type Dependencies struct {
	Store        *repository.LookupStore
	Perturbation *repository.PerturbationStore
	Expander     domain.FamilyExpander
	Literature   domain.LiteratureSource
	Logger       *logrus.Logger
}

// Engine answers the question types of the agent. It owns the process-wide
// caches: known symbols, the transcription factor set, tissue names, the
// exclusivity index, pathway gene sets and the GO study.
type Engine struct {
	store        *repository.LookupStore
	perturbation *repository.PerturbationStore
	resolver     *Resolver
	symbols      *SymbolIndex
	literature   domain.LiteratureSource
	expander     domain.FamilyExpander

	tfs         *cache.Lazy[map[string]bool]
	tissues     *cache.Lazy[[]string]
	exclusivity *ExclusivityIndex
	geneSets    *enrichment.GeneSetCache
	goStudy     *cache.Lazy[*enrichment.GOStudy]

	corrector   enrichment.Corrector
	enrichLimit int
	alpha       float64
	rankLimit   int
	parallelism int
	logger      *logrus.Logger
}

// NewEngine wires an engine from its collaborators and configuration.
func NewEngine(deps Dependencies, config domain.Config) (*Engine, error) {
	corrector, err := enrichment.NewCorrector(config.Enrichment.Correction)
	if err != nil {
		return nil, fmt.Errorf("invalid enrichment configuration: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	store := deps.Store
	if store == nil {
		store = repository.NewLookupStore(nil, logger)
	}
	perturbation := deps.Perturbation
	if perturbation == nil {
		perturbation = repository.NewPerturbationStore(nil, logger)
	}

	ttl := config.Cache.TTL
	symbols := NewSymbolIndex(config.Enrichment.SymbolsPath, store, ttl, logger)

	e := &Engine{
		store:        store,
		perturbation: perturbation,
		resolver:     NewResolver(store, deps.Expander, symbols, logger),
		symbols:      symbols,
		literature:   deps.Literature,
		expander:     deps.Expander,
		exclusivity:  NewExclusivityIndex(store, ttl),
		corrector:    corrector,
		enrichLimit:  config.Enrichment.Limit,
		alpha:        config.Enrichment.Alpha,
		rankLimit:    config.Enrichment.RankLimit,
		parallelism:  config.Store.Parallelism,
		logger:       logger,
	}
	if e.rankLimit <= 0 {
		e.rankLimit = enrichment.DefaultLimit
	}
	if e.parallelism <= 0 {
		e.parallelism = defaultParallelism
	}

	e.tfs = cache.NewLazy[map[string]bool]("transcription_factors", ttl, func(ctx context.Context) (map[string]bool, error) {
		tfs, err := store.AllTFs(ctx)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(tfs))
		for _, tf := range tfs {
			set[strings.ToUpper(tf)] = true
		}
		return set, nil
	})
	e.tissues = cache.NewLazy[[]string]("tissues", ttl, store.AllTissues)
	e.geneSets = enrichment.NewGeneSetCache(config.Cache.DataDir, e.buildGeneSets, logger)
	e.goStudy = cache.NewLazy[*enrichment.GOStudy]("go_study", ttl, func(ctx context.Context) (*enrichment.GOStudy, error) {
		return e.buildGOStudy(ctx, config.Enrichment.GOOBOPath, config.Enrichment.PropagateCounts)
	})
	return e, nil
}

// Refresh drops every process-wide cache; the next query rebuilds what it
// needs.
func (e *Engine) Refresh() {
	group := cache.Group{e.symbols, e.tfs, e.tissues, e.exclusivity, e.geneSets, e.goStudy}
	if r, ok := e.expander.(cache.Refresher); ok {
		group = append(group, r)
	}
	group.Refresh()
	e.logger.Info("Engine caches refreshed")
}

// CacheStats describes the lazily built caches.
func (e *Engine) CacheStats() []cache.Stats {
	return []cache.Stats{
		e.symbols.Stats(),
		e.tfs.Stats(),
		e.tissues.Stats(),
		e.exclusivity.Stats(),
		e.goStudy.Stats(),
	}
}

// StoreAvailable reports whether the lookup store opened.
func (e *Engine) StoreAvailable() bool {
	return e.store.Available()
}

// SetAnswer is a list result, optionally split into provenance partitions
// when literature was consulted.
type SetAnswer struct {
	Items      []string           `json:"items"`
	Partitions []domain.Partition `json:"partitions,omitempty"`
	// LiteratureUnavailable is set when literature was asked for but could
	// not be reached.
	LiteratureUnavailable bool `json:"literature_unavailable,omitempty"`
}

// Empty reports whether no partition holds an item.
func (a SetAnswer) Empty() bool {
	if len(a.Partitions) == 0 {
		return len(a.Items) == 0
	}
	for _, p := range a.Partitions {
		if len(p.Items) > 0 {
			return false
		}
	}
	return true
}

// BoolAnswer is a yes/no result with the sources that support a yes.
type BoolAnswer struct {
	Result                bool               `json:"result"`
	Sources               []string           `json:"sources,omitempty"`
	Evidence              []domain.Partition `json:"evidence,omitempty"`
	LiteratureUnavailable bool               `json:"literature_unavailable,omitempty"`
}

// resolveOne resolves a reference that must denote one gene or family.
// Ambiguous references fail with missing and their candidates.
func (e *Engine) resolveOne(ctx context.Context, ref domain.EntityRef, missing domain.Reason) (domain.ResolvedEntity, error) {
	entity, err := e.resolver.ResolveGene(ctx, ref, missing)
	if err != nil {
		return entity, err
	}
	if entity.Kind == domain.KindAmbiguous {
		return entity, domain.NewFailure(missing, entity.Name).
			WithMessage("%s matches several genes", entity.Name).
			WithClarification(&domain.Clarification{Type: "gene", As: entity.Candidates})
	}
	return entity, nil
}

// participants resolves a list of gene references. Unknown single-gene
// symbols are dropped when more than one entity is given; a list left empty
// fails with missing.
func (e *Engine) participants(ctx context.Context, refs []domain.EntityRef, missing, notFound domain.Reason, policy FamilyPolicy) ([]Participant, error) {
	if len(refs) == 0 {
		return nil, domain.NewFailure(missing, "")
	}

	out := make([]Participant, 0, len(refs))
	var dropped []string
	for _, ref := range refs {
		entity, err := e.resolveOne(ctx, ref, missing)
		if err != nil {
			return nil, err
		}
		if len(refs) > 1 && entity.Kind == domain.KindSingleGene && !e.symbols.Known(ctx, entity.Symbol) {
			dropped = append(dropped, entity.Symbol)
			continue
		}
		out = append(out, Participant{Entity: entity, NotFound: notFound})
	}
	if len(dropped) > 0 {
		e.logger.WithField("symbols", dropped).Debug("Dropped unknown symbols from join")
	}
	if len(out) == 0 {
		return nil, domain.NewFailure(missing, strings.Join(dropped, ", "))
	}
	if err := checkFamilies(out, policy); err != nil {
		return nil, err
	}
	return out, nil
}

// miRNAParticipants resolves a list of miRNA names.
func (e *Engine) miRNAParticipants(ctx context.Context, refs []domain.EntityRef, notFound domain.Reason) ([]Participant, error) {
	if len(refs) == 0 {
		return nil, domain.NewFailure(domain.ReasonNoMiRNAName, "")
	}
	out := make([]Participant, 0, len(refs))
	for _, ref := range refs {
		entity, err := e.resolver.ResolveMiRNA(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, Participant{Entity: entity, NotFound: notFound})
	}
	return out, nil
}

// checkTissue fails with INVALID_TISSUE when no row of the tissue table
// contains tissue. The failure suggests the closest tissue names.
func (e *Engine) checkTissue(ctx context.Context, tissue string) error {
	if tissue == "" {
		return nil
	}
	ok, err := e.store.TissueExists(ctx, tissue)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	failure := domain.NewFailure(domain.ReasonInvalidTissue, tissue)
	if suggestions := e.similarTissues(ctx, tissue); len(suggestions) > 0 {
		failure.WithClarification(&domain.Clarification{Type: "tissue", As: suggestions})
	}
	return failure
}

func (e *Engine) similarTissues(ctx context.Context, tissue string) []string {
	names, err := e.tissues.Get(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Tissue names unavailable for suggestions")
		return nil
	}

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	query := strings.ToLower(tissue)
	for _, name := range names {
		score, err := edlib.StringsSimilarity(query, strings.ToLower(name), edlib.JaroWinkler)
		if err != nil || score < tissueSimilarityFloor {
			continue
		}
		candidates = append(candidates, scored{name: name, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var out []string
	for _, c := range candidates {
		if len(out) == maxTissueSuggestions {
			break
		}
		out = append(out, c.name)
	}
	return out
}

// restrictToTissue keeps the genes expressed in tissue.
func (e *Engine) restrictToTissue(ctx context.Context, genes []string, tissue string) ([]string, error) {
	if tissue == "" {
		return genes, nil
	}
	expressed, err := e.store.GenesInTissue(ctx, tissue)
	if err != nil {
		return nil, err
	}
	return intersect(genes, expressed), nil
}

// postFilter applies the tissue and of-those qualifiers to a result list.
func (e *Engine) postFilter(ctx context.Context, items []string, q Qualifiers) ([]string, error) {
	items, err := e.restrictToTissue(ctx, items, q.Tissue)
	if err != nil {
		return nil, err
	}
	return Restrict(items, q.OfThose), nil
}

// statementTypes maps a direction to literature statement types.
func statementTypes(d domain.Direction) []string {
	switch d {
	case domain.DirectionIncrease:
		return []string{"IncreaseAmount"}
	case domain.DirectionDecrease:
		return []string{"DecreaseAmount"}
	case domain.DirectionBind:
		return external.BindingTypes
	}
	return external.RegulationTypes
}

// literatureLookup returns a lookup over literature statements: the objects
// of statements about a subject when bySubject is set, otherwise the
// subjects of statements about an object. unavailable is set if any fetch
// could not reach the source.
func (e *Engine) literatureLookup(types []string, bySubject bool, unavailable *atomic.Bool) lookupFunc {
	return func(ctx context.Context, symbol string) ([]string, error) {
		if e.literature == nil {
			unavailable.Store(true)
			return nil, nil
		}
		q := domain.StatementQuery{Types: types}
		if bySubject {
			q.Subject = symbol
		} else {
			q.Object = symbol
		}
		statements, ok := e.literature.Fetch(ctx, q)
		if !ok {
			unavailable.Store(true)
			return nil, nil
		}
		if bySubject {
			return external.Objects(statements), nil
		}
		return external.Subjects(statements), nil
	}
}

// joinWithLiterature answers a regulation list question. The database result
// is the intersection over participants; with literature requested, a second
// partition intersects the literature results the same way, reading
// statements about each participant as subject when bySubject is set. Partitions are
// labelled "<label>-db" and "<label>-literature" and are not deduplicated
// against each other.
func (e *Engine) joinWithLiterature(ctx context.Context, participants []Participant, q Qualifiers, db lookupFunc, bySubject bool, label string) (SetAnswer, error) {
	var answer SetAnswer
	var dbFailure error

	if q.Source != SourceLiterature {
		items, err := IntersectAll(ctx, participants, db, e.parallelism)
		if err != nil {
			if _, ok := domain.AsFailure(err); !ok || q.Source == SourceDB {
				return answer, err
			}
			dbFailure = err
		}
		if items, err = e.postFilter(ctx, items, q); err != nil {
			return answer, err
		}
		answer.Items = items
		if q.Source == SourceDB {
			return answer, nil
		}
	}

	var unavailable atomic.Bool
	sets, err := fetchAll(ctx, participants, e.literatureLookup(statementTypes(q.Direction), bySubject, &unavailable), e.parallelism)
	if err != nil {
		return answer, err
	}
	var litItems []string
	for i, set := range sets {
		if i == 0 {
			litItems = set
			continue
		}
		litItems = intersect(litItems, set)
	}
	if litItems, err = e.postFilter(ctx, litItems, q); err != nil {
		return answer, err
	}
	answer.LiteratureUnavailable = unavailable.Load()

	if dbFailure != nil && len(litItems) == 0 {
		return answer, dbFailure
	}
	if q.Source == SourceLiterature {
		answer.Items = litItems
		answer.Partitions = []domain.Partition{{Source: label + "-literature", Items: litItems}}
		return answer, nil
	}
	answer.Partitions = []domain.Partition{
		{Source: label + "-db", Items: answer.Items},
		{Source: label + "-literature", Items: litItems},
	}
	return answer, nil
}

// rankParticipants computes each participant's items and ranks them by how
// many participants share them. When every participant is empty the first
// one's not-found reason is raised.
func (e *Engine) rankParticipants(ctx context.Context, participants []Participant, lookup lookupFunc, limit int) ([]domain.RankedItem, error) {
	sets, err := fetchAll(ctx, participants, lookup, e.parallelism)
	if err != nil {
		return nil, err
	}
	empty := true
	for _, s := range sets {
		if len(s) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return nil, domain.NewFailure(participants[0].NotFound, participants[0].Entity.Label())
	}
	if limit <= 0 {
		limit = e.rankLimit
	}
	return RankByCount(sets, limit), nil
}

// entityGenes unions the genes of resolved participants, in order.
func entityGenes(participants []Participant) []string {
	lists := make([][]string, 0, len(participants))
	for _, p := range participants {
		lists = append(lists, p.Entity.Genes())
	}
	return union(lists...)
}

func labels(participants []Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Entity.Label())
	}
	return strings.Join(names, ", ")
}
