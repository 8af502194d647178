package domain

import (
	"context"
)

// FamilyExpander lists the member genes of a protein family or gene group.
// An empty result means the reference is not a known family.
type FamilyExpander interface {
	Expand(ctx context.Context, ref EntityRef) ([]string, error)
}

// StatementQuery selects literature statements by agents and relation types.
type StatementQuery struct {
	Subject string   `json:"subject,omitempty"`
	Object  string   `json:"object,omitempty"`
	Types   []string `json:"types,omitempty"`
}

// LiteratureSource fetches literature statements. The boolean result is
// false when the source is disabled or unreachable; that is never an error.
type LiteratureSource interface {
	Fetch(ctx context.Context, q StatementQuery) ([]Statement, bool)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetStoreConfig() *StoreConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
}
