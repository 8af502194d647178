package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/enrichment"
)

// DefaultPathwayDatabase is used when an enrichment question names none.
const DefaultPathwayDatabase = "KEGG"

// studyGenes resolves an enrichment gene list; families contribute all their
// members.
func (e *Engine) studyGenes(ctx context.Context, genes []domain.EntityRef) ([]string, error) {
	participants, err := e.participants(ctx, genes, domain.ReasonNoGeneName, domain.ReasonGONotFound, FamilyUnion)
	if err != nil {
		return nil, err
	}
	return entityGenes(participants), nil
}

// GOEnrichment tests the gene list for enriched GO categories.
func (e *Engine) GOEnrichment(ctx context.Context, genes []domain.EntityRef, q Qualifiers) ([]domain.EnrichmentResult, error) {
	study, err := e.studyGenes(ctx, genes)
	if err != nil {
		return nil, err
	}
	goStudy, err := e.goStudy.Get(ctx)
	if err != nil {
		return nil, err
	}
	return goStudy.Run(study, nil, enrichment.Options{
		Limit: e.limit(q.Limit),
		Alpha: e.alpha,
	}), nil
}

// PathwayEnrichment runs an over-representation analysis of the gene list
// against the pathways of one database. The population is every known
// symbol, or the union of the database's pathway genes when none are known.
func (e *Engine) PathwayEnrichment(ctx context.Context, genes []domain.EntityRef, q Qualifiers) ([]domain.EnrichmentResult, error) {
	study, err := e.studyGenes(ctx, genes)
	if err != nil {
		return nil, err
	}
	database := q.Database
	if database == "" {
		database = DefaultPathwayDatabase
	}
	sets, err := e.geneSets.Get(ctx, database)
	if err != nil {
		return nil, err
	}

	population, err := e.symbols.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(population) == 0 {
		lists := make([][]string, 0, len(sets))
		for _, s := range sets {
			lists = append(lists, s.Genes)
		}
		population = union(lists...)
	}

	return enrichment.ORA(study, population, sets, enrichment.Options{
		Limit:     e.limit(q.Limit),
		Alpha:     e.alpha,
		Corrector: e.corrector,
	}), nil
}

func (e *Engine) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	return e.enrichLimit
}

// buildGeneSets reads a pathway database's gene sets from the store. An
// unknown database fails with PATHWAY_NOT_FOUND and is not cached.
func (e *Engine) buildGeneSets(ctx context.Context, database string) ([]enrichment.GeneSet, error) {
	records, err := e.store.PathwayGeneSets(ctx, database)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.NewFailure(domain.ReasonPathwayNotFound, database).
			WithMessage("no pathways for database %s", database)
	}
	sets := make([]enrichment.GeneSet, 0, len(records))
	for _, r := range records {
		sets = append(sets, enrichment.GeneSet{
			ID:     strconv.Itoa(r.ID),
			Name:   r.Name,
			Source: r.Source,
			Genes:  r.Genes,
		})
	}
	e.logger.WithFields(logrus.Fields{
		"database": strings.ToUpper(database),
		"sets":     len(sets),
	}).Info("Built pathway gene sets")
	return sets, nil
}

// buildGOStudy loads the GO annotations from the store and, when an OBO file
// is configured, the GO DAG used to propagate them to ancestor terms.
func (e *Engine) buildGOStudy(ctx context.Context, oboPath string, propagate bool) (*enrichment.GOStudy, error) {
	assoc, err := e.store.GOAssociations(ctx)
	if err != nil {
		return nil, err
	}
	terms, err := e.store.AllGOTerms(ctx)
	if err != nil {
		return nil, err
	}

	var dag *enrichment.DAG
	if oboPath != "" {
		if dag, err = enrichment.LoadOBO(oboPath, false); err != nil {
			e.logger.WithFields(logrus.Fields{
				"path":  oboPath,
				"error": err,
			}).Warn("GO DAG unavailable, annotations will not be propagated")
			dag = nil
		}
	}

	e.logger.WithFields(logrus.Fields{
		"genes":     len(assoc),
		"terms":     len(terms),
		"propagate": dag != nil && propagate,
	}).Info("Built GO enrichment study")
	return enrichment.NewGOStudy(assoc, terms, dag, propagate), nil
}
