package setup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/agent"
	"github.com/tfta-mcp-server/internal/database"
	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/repository"
	"github.com/tfta-mcp-server/internal/service"
	"github.com/tfta-mcp-server/pkg/external"
)

// Components are the long-lived collaborators shared by both binaries.
type Components struct {
	Agent *agent.Agent

	lookup       *repository.LookupStore
	perturbation *repository.PerturbationStore
	statements   *external.StatementCache
	logger       *logrus.Logger
}

// Build opens the stores and wires the engine and agent. Missing stores and
// an unreachable Redis degrade with a warning; only invalid enrichment
// settings are an error.
func Build(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*Components, error) {
	c := &Components{logger: logger}

	c.lookup = repository.OpenLookupStore(ctx, storeConfig(cfg.Store, cfg.Store.TFTADBPath), logger)
	c.perturbation = repository.OpenPerturbationStore(ctx, storeConfig(cfg.Store, cfg.Store.PerturbationDBPath), logger)

	var expander domain.FamilyExpander
	if cfg.HGNC.Enabled {
		expander = service.NewCachingExpander(
			external.NewHGNCClient(cfg.HGNC, logger),
			cfg.Cache.FamilyCacheSize,
			cfg.Cache.FamilyCacheTTL,
		)
	}

	var literature domain.LiteratureSource
	if cfg.Literature.Enabled {
		if cfg.Cache.RedisURL != "" {
			statements, err := external.NewStatementCache(cfg.Cache.RedisURL, cfg.Cache.StatementTTL)
			if err != nil {
				logger.WithError(err).Warn("Statement cache unavailable, literature results will not be cached")
			} else {
				c.statements = statements
			}
		}
		literature = external.NewLiteratureClient(cfg.Literature, c.statements, logger)
	}

	engine, err := service.NewEngine(service.Dependencies{
		Store:        c.lookup,
		Perturbation: c.perturbation,
		Expander:     expander,
		Literature:   literature,
		Logger:       logger,
	}, *cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create query engine: %w", err)
	}
	c.Agent = agent.NewAgent(engine, logger)

	logger.WithFields(logrus.Fields{
		"lookup_store":       c.lookup.Available(),
		"perturbation_store": c.perturbation.Available(),
		"literature":         cfg.Literature.Enabled,
		"family_expansion":   cfg.HGNC.Enabled,
		"statement_cache":    c.statements != nil,
	}).Info("Query engine ready")
	return c, nil
}

// Close releases the stores and the statement cache.
func (c *Components) Close() {
	c.lookup.Close()
	c.perturbation.Close()
	if c.statements != nil {
		if err := c.statements.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close statement cache")
		}
	}
}

func storeConfig(cfg domain.StoreConfig, path string) database.Config {
	return database.Config{
		Path:        path,
		MaxConns:    cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxConnLife: cfg.ConnMaxLifetime,
	}
}
