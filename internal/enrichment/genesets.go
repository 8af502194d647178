package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// GeneSetBuilder computes the gene sets of one pathway database.
type GeneSetBuilder func(ctx context.Context, database string) ([]GeneSet, error)

// GeneSetCache is a read-through cache of per-database gene sets, held in
// memory and mirrored to JSON files under a directory. A missing file is
// rebuilt and written back.
type GeneSetCache struct {
	dir    string
	build  GeneSetBuilder
	logger *logrus.Logger

	mu     sync.Mutex
	memory map[string][]GeneSet
}

// NewGeneSetCache creates a cache writing under dir. An empty dir keeps the
// cache in memory only.
func NewGeneSetCache(dir string, build GeneSetBuilder, logger *logrus.Logger) *GeneSetCache {
	return &GeneSetCache{
		dir:    dir,
		build:  build,
		logger: logger,
		memory: make(map[string][]GeneSet),
	}
}

// Get returns the gene sets of a pathway database.
func (c *GeneSetCache) Get(ctx context.Context, database string) ([]GeneSet, error) {
	key := strings.ToLower(database)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sets, ok := c.memory[key]; ok {
		return sets, nil
	}

	if sets, err := c.readFile(key); err == nil {
		c.memory[key] = sets
		return sets, nil
	} else if !os.IsNotExist(err) {
		c.logger.WithFields(logrus.Fields{
			"database": database,
			"error":    err,
		}).Warn("Ignoring unreadable gene set cache file")
	}

	sets, err := c.build(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("building gene sets for %s: %w", database, err)
	}
	c.memory[key] = sets

	if err := c.writeFile(key, sets); err != nil {
		c.logger.WithFields(logrus.Fields{
			"database": database,
			"error":    err,
		}).Warn("Failed to write gene set cache file")
	}
	return sets, nil
}

// Invalidate drops one database from memory and removes its file.
func (c *GeneSetCache) Invalidate(database string) error {
	key := strings.ToLower(database)
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.memory, key)
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing gene set cache file: %w", err)
	}
	return nil
}

// Refresh drops every database from memory and removes every gene set file
// under the directory, including files written by earlier processes.
func (c *GeneSetCache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = make(map[string][]GeneSet)
	if c.dir == "" {
		return
	}
	files, err := filepath.Glob(filepath.Join(c.dir, "*"+geneSetFileSuffix))
	if err != nil {
		c.logger.WithError(err).Warn("Gene set cache refresh failed")
		return
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			c.logger.WithFields(logrus.Fields{
				"file":  file,
				"error": err,
			}).Warn("Gene set cache refresh failed")
		}
	}
}

const geneSetFileSuffix = "_genesets.json"

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9_-]+`)

func (c *GeneSetCache) path(key string) string {
	return filepath.Join(c.dir, unsafeFileChars.ReplaceAllString(key, "_")+geneSetFileSuffix)
}

func (c *GeneSetCache) readFile(key string) ([]GeneSet, error) {
	if c.dir == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, err
	}
	var sets []GeneSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decoding gene set cache: %w", err)
	}
	return sets, nil
}

func (c *GeneSetCache) writeFile(key string, sets []GeneSet) error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}
