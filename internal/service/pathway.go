package service

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/tfta-mcp-server/internal/domain"
)

// FindPathways returns the pathways containing every given gene, optionally
// limited to one pathway database and to names containing a keyword.
func (e *Engine) FindPathways(ctx context.Context, genes []domain.EntityRef, q Qualifiers) ([]domain.PathwayRecord, error) {
	participants, err := e.participants(ctx, genes, domain.ReasonNoGeneName, domain.ReasonPathwayNotFound, q.Families)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	records := make(map[string]domain.PathwayRecord)
	ids, err := IntersectAll(ctx, participants, func(ctx context.Context, gene string) ([]string, error) {
		pathways, err := e.store.PathwaysOfGene(ctx, gene, q.Database, q.Keyword)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, 0, len(pathways))
		for _, p := range pathways {
			id := strconv.Itoa(p.ID)
			records[id] = p
			out = append(out, id)
		}
		return out, nil
	}, e.parallelism)
	if err != nil {
		return nil, err
	}

	result := make([]domain.PathwayRecord, 0, len(ids))
	for _, id := range ids {
		result = append(result, records[id])
	}
	return result, nil
}

// FindGenePathway returns the pathways whose name contains keyword with their
// member genes, restricted to the of-those genes. Pathways left without genes
// are dropped.
func (e *Engine) FindGenePathway(ctx context.Context, keyword string, q Qualifiers) ([]domain.PathwayRecord, error) {
	pathways, err := e.pathwaysByKeyword(ctx, keyword, q.Database)
	if err != nil {
		return nil, err
	}

	result := make([]domain.PathwayRecord, 0, len(pathways))
	for _, p := range pathways {
		genes, err := e.store.GenesOfPathway(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if genes = Restrict(genes, q.OfThose); len(genes) > 0 {
			p.Genes = genes
			result = append(result, p)
		}
	}
	return result, nil
}

// FindTFPathway returns the pathways whose name contains keyword with the
// transcription factors among their genes. Pathways without TFs are dropped.
func (e *Engine) FindTFPathway(ctx context.Context, keyword string, q Qualifiers) ([]domain.PathwayRecord, error) {
	pathways, err := e.pathwaysByKeyword(ctx, keyword, q.Database)
	if err != nil {
		return nil, err
	}
	tfs, err := e.tfs.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.PathwayRecord, 0, len(pathways))
	for _, p := range pathways {
		genes, err := e.store.GenesOfPathway(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		var members []string
		for _, g := range genes {
			if tfs[strings.ToUpper(g)] {
				members = append(members, g)
			}
		}
		if members = Restrict(members, q.OfThose); len(members) > 0 {
			p.Genes = members
			result = append(result, p)
		}
	}
	return result, nil
}

func (e *Engine) pathwaysByKeyword(ctx context.Context, keyword, database string) ([]domain.PathwayRecord, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, domain.NewFailure(domain.ReasonNoPathwayName, "")
	}
	pathways, err := e.store.PathwaysByKeyword(ctx, keyword, database)
	if err != nil {
		return nil, err
	}
	if len(pathways) == 0 {
		return nil, domain.NewFailure(domain.ReasonPathwayNotFound, keyword)
	}
	return pathways, nil
}

// FindCommonPathwayGenes returns the pathways shared by the given genes. A
// pathway is shared when it contains at least max(2, ceil(N/2)) of the N
// genes, relaxed to 2 when no pathway reaches that bar. Each pathway carries
// the input genes it contains, and pathways are ordered by that count.
func (e *Engine) FindCommonPathwayGenes(ctx context.Context, genes []domain.EntityRef, q Qualifiers) ([]domain.PathwayRecord, error) {
	participants, err := e.participants(ctx, genes, domain.ReasonNoGeneName, domain.ReasonPathwayNotFound, q.Families)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	records := make(map[string]domain.PathwayRecord)
	sets, err := fetchAll(ctx, participants, func(ctx context.Context, gene string) ([]string, error) {
		pathways, err := e.store.PathwaysOfGene(ctx, gene, q.Database, q.Keyword)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, 0, len(pathways))
		for _, p := range pathways {
			id := strconv.Itoa(p.ID)
			records[id] = p
			out = append(out, id)
		}
		return out, nil
	}, e.parallelism)
	if err != nil {
		return nil, err
	}

	common, ok := CommonItems(len(participants), RankByCount(sets, 0))
	if !ok {
		return nil, domain.NewFailure(domain.ReasonPathwayNotFound, labels(participants))
	}

	result := make([]domain.PathwayRecord, 0, len(common))
	for _, c := range common {
		rec := records[c.Name]
		for i, set := range sets {
			if contains(set, c.Name) {
				rec.Genes = append(rec.Genes, participants[i].Entity.Label())
			}
		}
		result = append(result, rec)
	}
	return result, nil
}
