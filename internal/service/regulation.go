package service

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tfta-mcp-server/internal/domain"
)

// IsRegulation answers whether tf regulates target. With a tissue, a target
// not expressed there is answered false. The tf must be a known
// transcription factor when the database is consulted.
func (e *Engine) IsRegulation(ctx context.Context, tf, target domain.EntityRef, q Qualifiers) (BoolAnswer, error) {
	var answer BoolAnswer

	regulator, err := e.resolveSingle(ctx, tf, domain.ReasonNoTFName)
	if err != nil {
		return answer, err
	}
	gene, err := e.resolveSingle(ctx, target, domain.ReasonNoTargetName)
	if err != nil {
		return answer, err
	}
	if err := e.checkTissue(ctx, q.Tissue); err != nil {
		return answer, err
	}
	if q.Tissue != "" {
		expressed, err := e.restrictToTissue(ctx, []string{gene.Symbol}, q.Tissue)
		if err != nil {
			return answer, err
		}
		if len(expressed) == 0 {
			return answer, nil
		}
	}

	if q.Source != SourceLiterature {
		tfs, err := e.tfs.Get(ctx)
		if err != nil {
			return answer, err
		}
		if !tfs[strings.ToUpper(regulator.Symbol)] {
			return answer, domain.NewFailure(domain.ReasonTFNotFound, regulator.Symbol)
		}
		dbs, err := e.store.RegulationDBs(ctx, regulator.Symbol, gene.Symbol)
		if err != nil {
			return answer, err
		}
		answer.Sources = dbs
		answer.Result = len(dbs) > 0
		answer.Evidence = append(answer.Evidence, domain.Partition{Source: "db", Items: dbs})
	}

	if q.Source != SourceDB {
		if e.literature == nil {
			answer.LiteratureUnavailable = true
			return answer, nil
		}
		statements, ok := e.literature.Fetch(ctx, domain.StatementQuery{
			Subject: regulator.Symbol,
			Object:  gene.Symbol,
			Types:   statementTypes(q.Direction),
		})
		answer.LiteratureUnavailable = !ok
		hashes := make([]string, 0, len(statements))
		for _, s := range statements {
			hashes = append(hashes, s.Hash)
		}
		answer.Evidence = append(answer.Evidence, domain.Partition{Source: "literature", Items: hashes})
		if len(statements) > 0 {
			answer.Result = true
			answer.Sources = append(answer.Sources, "literature")
		}
	}
	return answer, nil
}

// resolveSingle resolves a reference that must be one gene. Families fail
// with FAMILY_NAME and their members as clarification.
func (e *Engine) resolveSingle(ctx context.Context, ref domain.EntityRef, missing domain.Reason) (domain.ResolvedEntity, error) {
	entity, err := e.resolveOne(ctx, ref, missing)
	if err != nil {
		return entity, err
	}
	if err := checkFamilies([]Participant{{Entity: entity}}, FamilyClarify); err != nil {
		return entity, err
	}
	return entity, nil
}

// FindTargets returns the targets regulated by every given transcription
// factor. A family counts as regulating a target when any member does.
func (e *Engine) FindTargets(ctx context.Context, tfs []domain.EntityRef, q Qualifiers) (SetAnswer, error) {
	participants, err := e.participants(ctx, tfs, domain.ReasonNoTFName, domain.ReasonTFNotFound, q.Families)
	if err != nil {
		return SetAnswer{}, err
	}
	if err := e.checkTissue(ctx, q.Tissue); err != nil {
		return SetAnswer{}, err
	}
	return e.joinWithLiterature(ctx, participants, q, e.store.TargetsOfTF, true, "target")
}

// FindTFs returns the transcription factors regulating every given target.
func (e *Engine) FindTFs(ctx context.Context, targets []domain.EntityRef, q Qualifiers) (SetAnswer, error) {
	participants, err := e.participants(ctx, targets, domain.ReasonNoTargetName, domain.ReasonTargetNotFound, q.Families)
	if err != nil {
		return SetAnswer{}, err
	}
	if err := e.checkTissue(ctx, q.Tissue); err != nil {
		return SetAnswer{}, err
	}
	return e.joinWithLiterature(ctx, participants, q, e.store.TFsOfTarget, false, "tf")
}

// FindTargetCount ranks targets by how many of the given TFs regulate them.
func (e *Engine) FindTargetCount(ctx context.Context, tfs []domain.EntityRef, q Qualifiers) ([]domain.RankedItem, error) {
	participants, err := e.participants(ctx, tfs, domain.ReasonNoTFName, domain.ReasonTFNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankParticipants(ctx, participants, e.store.TargetsOfTF, q.Limit)
	if err != nil {
		return nil, err
	}
	return restrictRanked(ranked, q.OfThose), nil
}

// FindTFCount ranks TFs by how many of the given targets they regulate.
func (e *Engine) FindTFCount(ctx context.Context, targets []domain.EntityRef, q Qualifiers) ([]domain.RankedItem, error) {
	participants, err := e.participants(ctx, targets, domain.ReasonNoTargetName, domain.ReasonTargetNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rankParticipants(ctx, participants, e.store.TFsOfTarget, q.Limit)
	if err != nil {
		return nil, err
	}
	return restrictRanked(ranked, q.OfThose), nil
}

// FindRegulation lists every regulator of a target, partitioned by kind:
// transcription factors, kinases and miRNAs from the database and, when
// asked for, literature subjects.
func (e *Engine) FindRegulation(ctx context.Context, target domain.EntityRef, q Qualifiers) (SetAnswer, error) {
	entity, err := e.resolveOne(ctx, target, domain.ReasonNoTargetName)
	if err != nil {
		return SetAnswer{}, err
	}
	var answer SetAnswer
	if q.Source != SourceLiterature {
		lookups := []struct {
			label  string
			lookup lookupFunc
		}{
			{"tf-db", e.store.TFsOfTarget},
			{"kinase-db", func(ctx context.Context, gene string) ([]string, error) {
				return e.store.KinasesOfTarget(ctx, gene, kinaseDirections(q.Direction))
			}},
			{"mirna-db", func(ctx context.Context, gene string) ([]string, error) {
				return e.store.MiRNAsOfTarget(ctx, gene, domain.StrengthAny)
			}},
		}
		for _, l := range lookups {
			items, err := participantSet(ctx, entity, l.lookup, e.parallelism)
			if err != nil {
				return answer, err
			}
			answer.Partitions = append(answer.Partitions, domain.Partition{Source: l.label, Items: items})
			answer.Items = append(answer.Items, items...)
		}
	}
	if q.Source != SourceDB {
		var unavailable atomic.Bool
		items, err := participantSet(ctx, entity, e.literatureLookup(nil, false, &unavailable), e.parallelism)
		if err != nil {
			return answer, err
		}
		answer.LiteratureUnavailable = unavailable.Load()
		answer.Partitions = append(answer.Partitions, domain.Partition{Source: "literature", Items: items})
		answer.Items = append(answer.Items, items...)
	}
	answer.Items = dedupe(answer.Items)

	if answer.Empty() {
		return answer, domain.NewFailure(domain.ReasonTargetNotFound, entity.Label())
	}
	return answer, nil
}

// kinaseDirections maps a direction to the kinase table's direction values.
// The generic "regulate" is increase or decrease.
func kinaseDirections(d domain.Direction) []string {
	switch d {
	case domain.DirectionIncrease, domain.DirectionDecrease, domain.DirectionBind:
		return []string{string(d)}
	}
	return []string{string(domain.DirectionIncrease), string(domain.DirectionDecrease)}
}

// FindKinaseRegulation returns the kinases acting on every given target.
func (e *Engine) FindKinaseRegulation(ctx context.Context, targets []domain.EntityRef, q Qualifiers) ([]string, error) {
	participants, err := e.participants(ctx, targets, domain.ReasonNoTargetName, domain.ReasonTargetNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	directions := kinaseDirections(q.Direction)
	kinases, err := IntersectAll(ctx, participants, func(ctx context.Context, gene string) ([]string, error) {
		return e.store.KinasesOfTarget(ctx, gene, directions)
	}, e.parallelism)
	if err != nil {
		return nil, err
	}
	return Restrict(kinases, q.OfThose), nil
}

// FindKinaseTargets returns the targets of every given kinase.
func (e *Engine) FindKinaseTargets(ctx context.Context, kinases []domain.EntityRef, q Qualifiers) ([]string, error) {
	participants, err := e.participants(ctx, kinases, domain.ReasonNoKinaseName, domain.ReasonKinaseNotFound, q.Families)
	if err != nil {
		return nil, err
	}
	directions := kinaseDirections(q.Direction)
	targets, err := IntersectAll(ctx, participants, func(ctx context.Context, kinase string) ([]string, error) {
		return e.store.TargetsOfKinase(ctx, kinase, directions)
	}, e.parallelism)
	if err != nil {
		return nil, err
	}
	return Restrict(targets, q.OfThose), nil
}

func restrictRanked(ranked []domain.RankedItem, allow []string) []domain.RankedItem {
	if len(allow) == 0 {
		return ranked
	}
	out := make([]domain.RankedItem, 0, len(ranked))
	for _, r := range ranked {
		if contains(allow, r.Name) {
			out = append(out, r)
		}
	}
	return out
}
