package service

import (
	"context"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/repository"
)

// The miRNA-target table has a single repressive relation: "decrease" and
// "regulate" both read it unfiltered, other directions are not recorded.
func miRNADirectionSupported(d domain.Direction) bool {
	switch d {
	case "", domain.DirectionRegulate, domain.DirectionDecrease:
		return true
	}
	return false
}

// FindMiRNATargets returns the targets of every given miRNA. A miRNA with no
// targets fails with TARGET_NOT_FOUND.
func (e *Engine) FindMiRNATargets(ctx context.Context, mirnas []domain.EntityRef, q Qualifiers) ([]string, error) {
	participants, err := e.miRNAParticipants(ctx, mirnas, domain.ReasonTargetNotFound)
	if err != nil {
		return nil, err
	}
	if !miRNADirectionSupported(q.Direction) {
		return nil, nil
	}
	targets, err := IntersectAll(ctx, participants, func(ctx context.Context, mirna string) ([]string, error) {
		return e.store.TargetsOfMiRNA(ctx, mirna, q.Strength)
	}, e.parallelism)
	if err != nil {
		return nil, err
	}
	return Restrict(targets, q.OfThose), nil
}

// FindMiRNAs returns the miRNAs targeting every given gene.
func (e *Engine) FindMiRNAs(ctx context.Context, targets []domain.EntityRef, q Qualifiers) ([]string, error) {
	participants, err := e.participants(ctx, targets, domain.ReasonNoTargetName, domain.ReasonTargetNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	if !miRNADirectionSupported(q.Direction) {
		return nil, nil
	}
	mirnas, err := IntersectAll(ctx, participants, func(ctx context.Context, gene string) ([]string, error) {
		return e.store.MiRNAsOfTarget(ctx, gene, q.Strength)
	}, e.parallelism)
	if err != nil {
		return nil, err
	}
	return Restrict(mirnas, q.OfThose), nil
}

// IsMiRNATarget answers whether mirna targets target.
func (e *Engine) IsMiRNATarget(ctx context.Context, mirna, target domain.EntityRef, q Qualifiers) (BoolAnswer, error) {
	evidence, err := e.MiRNATargetEvidence(ctx, mirna, target, q)
	if err != nil {
		return BoolAnswer{}, err
	}
	answer := BoolAnswer{Result: len(evidence) > 0}
	if answer.Result {
		answer.Sources = []string{"db"}
	}
	return answer, nil
}

// MiRNATargetEvidence returns the experiments supporting a miRNA-target pair.
func (e *Engine) MiRNATargetEvidence(ctx context.Context, mirna, target domain.EntityRef, q Qualifiers) ([]domain.MiRNATarget, error) {
	m, err := e.resolver.ResolveMiRNA(ctx, mirna.Name)
	if err != nil {
		return nil, err
	}
	gene, err := e.resolveSingle(ctx, target, domain.ReasonNoTargetName)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.MiRNAEvidence(ctx, m.Symbol, gene.Symbol)
	if err != nil {
		return nil, err
	}
	if q.Strength == domain.StrengthAny {
		return rows, nil
	}
	out := rows[:0:0]
	for _, r := range rows {
		if strengthOf(r.SupportType) == q.Strength {
			out = append(out, r)
		}
	}
	return out, nil
}

func strengthOf(supportType string) domain.Strength {
	switch supportType {
	case repository.SupportStrong:
		return domain.StrengthStrong
	case repository.SupportWeak:
		return domain.StrengthWeak
	}
	return domain.StrengthAny
}

// FindMiRNACountGene ranks miRNAs by how many of the given genes they target.
func (e *Engine) FindMiRNACountGene(ctx context.Context, genes []domain.EntityRef, q Qualifiers) ([]domain.RankedItem, error) {
	participants, err := e.participants(ctx, genes, domain.ReasonNoGeneName, domain.ReasonTargetNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankParticipants(ctx, participants, func(ctx context.Context, gene string) ([]string, error) {
		return e.store.MiRNAsOfTarget(ctx, gene, q.Strength)
	}, q.Limit)
	if err != nil {
		return nil, err
	}
	return restrictRanked(ranked, q.OfThose), nil
}

// FindGeneCountMiRNA ranks genes by how many of the given miRNAs target them.
func (e *Engine) FindGeneCountMiRNA(ctx context.Context, mirnas []domain.EntityRef, q Qualifiers) ([]domain.RankedItem, error) {
	participants, err := e.miRNAParticipants(ctx, mirnas, domain.ReasonTargetNotFound)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankParticipants(ctx, participants, func(ctx context.Context, mirna string) ([]string, error) {
		return e.store.TargetsOfMiRNA(ctx, mirna, q.Strength)
	}, q.Limit)
	if err != nil {
		return nil, err
	}
	return restrictRanked(ranked, q.OfThose), nil
}
