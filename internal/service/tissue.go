package service

import (
	"context"
	"strings"

	"github.com/tfta-mcp-server/internal/domain"
)

func requireTissue(tissue string) (string, error) {
	tissue = strings.TrimSpace(tissue)
	if tissue == "" {
		return "", domain.NewFailure(domain.ReasonNoTissueName, "")
	}
	return tissue, nil
}

// IsGeneTissue answers whether gene is expressed in a tissue.
func (e *Engine) IsGeneTissue(ctx context.Context, gene domain.EntityRef, tissue string) (BoolAnswer, error) {
	entity, err := e.resolveSingle(ctx, gene, domain.ReasonNoGeneName)
	if err != nil {
		return BoolAnswer{}, err
	}
	if tissue, err = requireTissue(tissue); err != nil {
		return BoolAnswer{}, err
	}
	if err := e.checkTissue(ctx, tissue); err != nil {
		return BoolAnswer{}, err
	}
	expressed, err := e.restrictToTissue(ctx, []string{entity.Symbol}, tissue)
	if err != nil {
		return BoolAnswer{}, err
	}
	return BoolAnswer{Result: len(expressed) > 0}, nil
}

// FindGeneTissue returns the genes expressed in a tissue, restricted to the
// of-those genes.
func (e *Engine) FindGeneTissue(ctx context.Context, tissue string, q Qualifiers) ([]string, error) {
	tissue, err := requireTissue(tissue)
	if err != nil {
		return nil, err
	}
	if err := e.checkTissue(ctx, tissue); err != nil {
		return nil, err
	}
	genes, err := e.store.GenesInTissue(ctx, tissue)
	if err != nil {
		return nil, err
	}
	return Restrict(genes, q.OfThose), nil
}

// FindTissue returns the tissues a gene is expressed in.
func (e *Engine) FindTissue(ctx context.Context, gene domain.EntityRef) ([]string, error) {
	entity, err := e.resolveSingle(ctx, gene, domain.ReasonNoGeneName)
	if err != nil {
		return nil, err
	}
	tissues, err := e.store.TissuesOfGene(ctx, entity.Symbol)
	if err != nil {
		return nil, err
	}
	if len(tissues) == 0 {
		return nil, domain.NewFailure(domain.ReasonTissueNotFound, entity.Symbol)
	}
	return tissues, nil
}

// FindTissueExclusiveGenes returns the genes expressed only in a tissue.
func (e *Engine) FindTissueExclusiveGenes(ctx context.Context, tissue string, q Qualifiers) ([]string, error) {
	tissue, err := requireTissue(tissue)
	if err != nil {
		return nil, err
	}
	if err := e.checkTissue(ctx, tissue); err != nil {
		return nil, err
	}
	genes, err := e.exclusivity.GenesExclusiveTo(ctx, tissue)
	if err != nil {
		return nil, err
	}
	return Restrict(genes, q.OfThose), nil
}

func requireGOTerm(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", domain.NewFailure(domain.ReasonNoGOName, "")
	}
	return term, nil
}

// genesOfGO returns the genes annotated to GO categories matching term.
// A term matching no category fails with GO_NOT_FOUND.
func (e *Engine) genesOfGO(ctx context.Context, term string) ([]string, error) {
	term, err := requireGOTerm(term)
	if err != nil {
		return nil, err
	}
	genes, err := e.store.GenesOfGO(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(genes) == 0 {
		return nil, domain.NewFailure(domain.ReasonGONotFound, term)
	}
	return genes, nil
}

// IsGeneOnto answers whether gene is annotated to a GO category.
func (e *Engine) IsGeneOnto(ctx context.Context, gene domain.EntityRef, term string) (BoolAnswer, error) {
	entity, err := e.resolveSingle(ctx, gene, domain.ReasonNoGeneName)
	if err != nil {
		return BoolAnswer{}, err
	}
	genes, err := e.genesOfGO(ctx, term)
	if err != nil {
		return BoolAnswer{}, err
	}
	return BoolAnswer{Result: contains(genes, entity.Symbol)}, nil
}

// FindGeneOnto returns the genes of a GO category, restricted to the
// of-those genes.
func (e *Engine) FindGeneOnto(ctx context.Context, term string, q Qualifiers) ([]string, error) {
	genes, err := e.genesOfGO(ctx, term)
	if err != nil {
		return nil, err
	}
	return Restrict(genes, q.OfThose), nil
}

// FindGeneGOTissue returns the genes of a GO category expressed in a tissue.
func (e *Engine) FindGeneGOTissue(ctx context.Context, term, tissue string, q Qualifiers) ([]string, error) {
	tissue, err := requireTissue(tissue)
	if err != nil {
		return nil, err
	}
	if err := e.checkTissue(ctx, tissue); err != nil {
		return nil, err
	}
	genes, err := e.genesOfGO(ctx, term)
	if err != nil {
		return nil, err
	}
	genes, err = e.restrictToTissue(ctx, genes, tissue)
	if err != nil {
		return nil, err
	}
	return Restrict(genes, q.OfThose), nil
}
