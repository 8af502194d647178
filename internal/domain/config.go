package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Store      StoreConfig      `mapstructure:"store"`
	Literature LiteratureConfig `mapstructure:"literature"`
	HGNC       HGNCConfig       `mapstructure:"hgnc"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	TransportType string `mapstructure:"transport_type"` // "stdio"
}

// StoreConfig locates the read-only lookup stores
type StoreConfig struct {
	TFTADBPath         string        `mapstructure:"tfta_db_path"`
	PerturbationDBPath string        `mapstructure:"perturbation_db_path"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	Parallelism        int           `mapstructure:"parallelism"` // concurrent per-entity lookups
}

// LiteratureConfig represents the literature statement API configuration
type LiteratureConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RateLimit           int           `mapstructure:"rate_limit"`
	LowPrecisionSources []string      `mapstructure:"low_precision_sources"`
	MaxStatements       int           `mapstructure:"max_statements"`
}

// HGNCConfig represents the HGNC gene group API configuration
type HGNCConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"` // zero means refresh only on demand
	FamilyCacheSize int           `mapstructure:"family_cache_size"`
	FamilyCacheTTL  time.Duration `mapstructure:"family_cache_ttl"`
	RedisURL        string        `mapstructure:"redis_url"`
	StatementTTL    time.Duration `mapstructure:"statement_ttl"`
	DataDir         string        `mapstructure:"data_dir"`
}

// EnrichmentConfig represents enrichment analysis configuration
type EnrichmentConfig struct {
	Limit           int     `mapstructure:"limit"`
	Alpha           float64 `mapstructure:"alpha"`
	Correction      string  `mapstructure:"correction"` // bonferroni, holm, fdr_bh
	GOOBOPath       string  `mapstructure:"go_obo_path"`
	PropagateCounts bool    `mapstructure:"propagate_counts"`
	SymbolsPath     string  `mapstructure:"symbols_path"`
	RankLimit       int     `mapstructure:"rank_limit"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
