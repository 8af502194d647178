package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/cache"
	"github.com/tfta-mcp-server/internal/repository"
)

// SymbolIndex is the set of known gene symbols, mapped to HGNC ids where a
// symbol file provides them. It is loaded once and refreshable.
type SymbolIndex struct {
	lazy   *cache.Lazy[map[string]string]
	path   string
	logger *logrus.Logger
}

// NewSymbolIndex creates an index backed by a tab-separated symbol file
// (symbol, hgnc id). With no file the distinct genes of the lookup store are
// used and ids are left empty.
func NewSymbolIndex(path string, store *repository.LookupStore, ttl time.Duration, logger *logrus.Logger) *SymbolIndex {
	idx := &SymbolIndex{path: path, logger: logger}
	idx.lazy = cache.NewLazy("hgnc_symbols", ttl, func(ctx context.Context) (map[string]string, error) {
		if path != "" {
			return idx.loadFile()
		}
		genes, err := store.DistinctGenes(ctx)
		if err != nil {
			return nil, err
		}
		symbols := make(map[string]string, len(genes))
		for _, g := range genes {
			symbols[g] = ""
		}
		return symbols, nil
	})
	return idx
}

func (idx *SymbolIndex) loadFile() (map[string]string, error) {
	f, err := os.Open(idx.path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol file: %w", err)
	}
	defer f.Close()

	symbols, err := readSymbols(f)
	if err != nil {
		return nil, fmt.Errorf("reading symbol file %s: %w", idx.path, err)
	}

	idx.logger.WithFields(logrus.Fields{
		"path":    idx.path,
		"symbols": len(symbols),
	}).Info("Loaded known gene symbols")
	return symbols, nil
}

func readSymbols(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	symbols := make(map[string]string)
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if first {
			first = false
			if h := strings.ToLower(rec[0]); strings.Contains(h, "symbol") {
				continue
			}
		}

		symbol := strings.TrimSpace(rec[0])
		if symbol == "" {
			continue
		}
		var id string
		if len(rec) > 1 {
			id = strings.TrimPrefix(strings.TrimSpace(rec[1]), "HGNC:")
		}
		symbols[symbol] = id
	}
	return symbols, nil
}

// Known reports whether symbol is a known gene. An empty index knows every
// symbol, so an unloaded or empty source never filters anything.
func (idx *SymbolIndex) Known(ctx context.Context, symbol string) bool {
	symbols, err := idx.lazy.Get(ctx)
	if err != nil {
		idx.logger.WithError(err).Warn("Known symbol index unavailable")
		return true
	}
	if len(symbols) == 0 {
		return true
	}
	_, ok := symbols[symbol]
	return ok
}

// HGNCID returns the HGNC id of a symbol, if known.
func (idx *SymbolIndex) HGNCID(ctx context.Context, symbol string) (string, bool) {
	symbols, err := idx.lazy.Get(ctx)
	if err != nil {
		return "", false
	}
	id, ok := symbols[symbol]
	return id, ok && id != ""
}

// Symbols returns every known symbol.
func (idx *SymbolIndex) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := idx.lazy.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(symbols))
	for s := range symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// Refresh drops the loaded index
func (idx *SymbolIndex) Refresh() {
	idx.lazy.Refresh()
}

// Stats describes the index cache
func (idx *SymbolIndex) Stats() cache.Stats {
	return idx.lazy.Stats()
}
