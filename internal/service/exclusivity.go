package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tfta-mcp-server/internal/cache"
	"github.com/tfta-mcp-server/internal/repository"
)

// ExclusivityIndex maps each tissue to the genes expressed in it and in no
// other tissue. It is built on first use from one scan of the tissue table.
type ExclusivityIndex struct {
	lazy *cache.Lazy[map[string][]string]
}

// NewExclusivityIndex creates an index over store. A zero ttl keeps the index
// until Refresh.
func NewExclusivityIndex(store *repository.LookupStore, ttl time.Duration) *ExclusivityIndex {
	return &ExclusivityIndex{
		lazy: cache.NewLazy[map[string][]string]("tissue_exclusivity", ttl, func(ctx context.Context) (map[string][]string, error) {
			expressed, err := store.ExpressedByTissue(ctx)
			if err != nil {
				return nil, err
			}
			return BuildExclusivity(expressed), nil
		}),
	}
}

// BuildExclusivity subtracts from every tissue's expressed genes the genes
// expressed in any other tissue. Tissues left with no genes are omitted and
// gene lists are sorted.
func BuildExclusivity(expressed map[string][]string) map[string][]string {
	tissuesOf := make(map[string]int)
	for _, genes := range expressed {
		for _, g := range dedupe(genes) {
			tissuesOf[g]++
		}
	}

	index := make(map[string][]string)
	for tissue, genes := range expressed {
		var exclusive []string
		for _, g := range dedupe(genes) {
			if tissuesOf[g] == 1 {
				exclusive = append(exclusive, g)
			}
		}
		if len(exclusive) > 0 {
			sort.Strings(exclusive)
			index[tissue] = exclusive
		}
	}
	return index
}

// Get returns the full index.
func (x *ExclusivityIndex) Get(ctx context.Context) (map[string][]string, error) {
	return x.lazy.Get(ctx)
}

// GenesExclusiveTo returns the exclusive genes of every tissue whose name
// contains tissue, case-insensitively, in tissue name order.
func (x *ExclusivityIndex) GenesExclusiveTo(ctx context.Context, tissue string) ([]string, error) {
	index, err := x.lazy.Get(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(tissue)
	var names []string
	for name := range index {
		if strings.Contains(strings.ToLower(name), needle) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var lists [][]string
	for _, name := range names {
		lists = append(lists, index[name])
	}
	return union(lists...), nil
}

// Refresh drops the index; the next query rebuilds it.
func (x *ExclusivityIndex) Refresh() {
	x.lazy.Refresh()
}

// Stats describes the index cache
func (x *ExclusivityIndex) Stats() cache.Stats {
	return x.lazy.Stats()
}
