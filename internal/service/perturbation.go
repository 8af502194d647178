package service

import (
	"context"
	"strings"

	"github.com/tfta-mcp-server/internal/domain"
)

var perturbationReasons = map[domain.PerturbationKind]struct {
	missing, notFound domain.Reason
}{
	domain.PerturbationDisease: {domain.ReasonNoDiseaseName, domain.ReasonDiseaseNotFound},
	domain.PerturbationLigand:  {domain.ReasonNoLigandName, domain.ReasonLigandNotFound},
	domain.PerturbationDrug:    {domain.ReasonNoDrugName, domain.ReasonDrugNotFound},
}

// perturbationDirection maps a direction to the perturbation tables'
// direction column; the generic "regulate" is unfiltered.
func perturbationDirection(d domain.Direction) string {
	switch d {
	case domain.DirectionIncrease, domain.DirectionDecrease:
		return string(d)
	}
	return ""
}

// FindPerturbedGenes returns the genes perturbed by a disease, ligand or drug
// whose name contains name. A name matching nothing fails with the kind's
// not-found reason.
func (e *Engine) FindPerturbedGenes(ctx context.Context, kind domain.PerturbationKind, name string, q Qualifiers) ([]string, error) {
	reasons, ok := perturbationReasons[kind]
	if !ok {
		return nil, domain.NewFailure(domain.ReasonInvalidArgument, string(kind))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewFailure(reasons.missing, "")
	}

	names, err := e.perturbation.NamesMatching(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, domain.NewFailure(reasons.notFound, name)
	}

	rows, err := e.perturbation.GenesPerturbedBy(ctx, kind, name, perturbationDirection(q.Direction))
	if err != nil {
		return nil, err
	}
	genes := make([]string, 0, len(rows))
	for _, r := range rows {
		genes = append(genes, r.Gene)
	}
	return Restrict(dedupe(genes), q.OfThose), nil
}

// FindGenePerturbations returns the diseases, ligands or drugs perturbing a
// gene.
func (e *Engine) FindGenePerturbations(ctx context.Context, kind domain.PerturbationKind, gene domain.EntityRef) ([]domain.Perturbation, error) {
	reasons, ok := perturbationReasons[kind]
	if !ok {
		return nil, domain.NewFailure(domain.ReasonInvalidArgument, string(kind))
	}
	entity, err := e.resolveSingle(ctx, gene, domain.ReasonNoGeneName)
	if err != nil {
		return nil, err
	}
	rows, err := e.perturbation.PerturbationsOfGene(ctx, kind, entity.Symbol)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewFailure(reasons.notFound, entity.Symbol)
	}
	return rows, nil
}

// IsMiRNADisease answers whether a miRNA is associated with a disease whose
// name contains disease.
func (e *Engine) IsMiRNADisease(ctx context.Context, mirna domain.EntityRef, disease string) (BoolAnswer, error) {
	m, err := e.resolveDiseaseMiRNA(ctx, mirna.Name)
	if err != nil {
		return BoolAnswer{}, err
	}
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return BoolAnswer{}, domain.NewFailure(domain.ReasonNoDiseaseName, "")
	}
	rows, err := e.perturbation.IsMiRNADisease(ctx, m.Symbol, disease)
	if err != nil {
		return BoolAnswer{}, err
	}
	answer := BoolAnswer{Result: len(rows) > 0}
	for _, r := range rows {
		answer.Sources = appendUniqueString(answer.Sources, r.PMID)
	}
	return answer, nil
}

// FindDiseaseMiRNA returns the diseases associated with a miRNA.
func (e *Engine) FindDiseaseMiRNA(ctx context.Context, mirna domain.EntityRef) ([]domain.MiRNADisease, error) {
	m, err := e.resolveDiseaseMiRNA(ctx, mirna.Name)
	if err != nil {
		return nil, err
	}
	rows, err := e.perturbation.MiRNADiseases(ctx, m.Symbol)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewFailure(domain.ReasonDiseaseNotFound, m.Symbol)
	}
	return rows, nil
}

// resolveDiseaseMiRNA resolves a miRNA against the target table and falls
// back to an exact match in the association table, which lists miRNAs
// without known targets.
func (e *Engine) resolveDiseaseMiRNA(ctx context.Context, name string) (domain.ResolvedEntity, error) {
	m, err := e.resolver.ResolveMiRNA(ctx, name)
	if err == nil || !(domain.IsFailure(err, domain.ReasonMiRNANotFound) || domain.IsFailure(err, domain.ReasonNoSimilarMiRNA)) {
		return m, err
	}
	for _, form := range miRNAForms(strings.TrimSpace(name)) {
		stored, ok, probeErr := e.perturbation.MiRNAExact(ctx, form)
		if probeErr != nil {
			return domain.ResolvedEntity{}, probeErr
		}
		if ok {
			return domain.ResolvedEntity{Kind: domain.KindMiRNA, Name: name, Symbol: stored}, nil
		}
	}
	return domain.ResolvedEntity{}, err
}

func appendUniqueString(list []string, v string) []string {
	if v == "" || contains(list, v) {
		return list
	}
	return append(list, v)
}
