package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tfta-mcp-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	// Set configuration file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tfta/")

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("TFTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")

	// MCP defaults
	v.SetDefault("mcp.server_name", "tfta-mcp-server")
	v.SetDefault("mcp.server_version", "v0.1.0")
	v.SetDefault("mcp.transport_type", "stdio")

	// Store defaults
	v.SetDefault("store.tfta_db_path", "./resources/TF_target_v7.db")
	v.SetDefault("store.perturbation_db_path", "./resources/disease_perturbation.db")
	v.SetDefault("store.max_open_conns", 8)
	v.SetDefault("store.max_idle_conns", 4)
	v.SetDefault("store.conn_max_lifetime", "30m")
	v.SetDefault("store.parallelism", 8)

	// Literature API defaults
	v.SetDefault("literature.enabled", false)
	v.SetDefault("literature.base_url", "https://db.indra.bio")
	v.SetDefault("literature.timeout", "20s")
	v.SetDefault("literature.rate_limit", 5)
	v.SetDefault("literature.low_precision_sources", []string{"medscan"})
	v.SetDefault("literature.max_statements", 500)

	// HGNC gene group defaults
	v.SetDefault("hgnc.enabled", false)
	v.SetDefault("hgnc.base_url", "https://rest.genenames.org")
	v.SetDefault("hgnc.timeout", "30s")
	v.SetDefault("hgnc.rate_limit", 3)

	// Cache defaults
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.family_cache_size", 1000)
	v.SetDefault("cache.family_cache_ttl", "24h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.statement_ttl", "24h")
	v.SetDefault("cache.data_dir", "./resources/cache")

	// Enrichment defaults
	v.SetDefault("enrichment.limit", 30)
	v.SetDefault("enrichment.alpha", 0.01)
	v.SetDefault("enrichment.correction", "bonferroni")
	v.SetDefault("enrichment.go_obo_path", "")
	v.SetDefault("enrichment.propagate_counts", true)
	v.SetDefault("enrichment.symbols_path", "")
	v.SetDefault("enrichment.rank_limit", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetStoreConfig returns lookup store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Store.TFTADBPath == "" {
		return fmt.Errorf("store.tfta_db_path is required")
	}
	if config.Store.MaxOpenConns <= 0 {
		return fmt.Errorf("invalid store.max_open_conns: %d", config.Store.MaxOpenConns)
	}

	if config.Literature.Enabled && config.Literature.BaseURL == "" {
		return fmt.Errorf("literature base URL is required when literature is enabled")
	}
	if config.HGNC.Enabled && config.HGNC.BaseURL == "" {
		return fmt.Errorf("HGNC base URL is required when HGNC expansion is enabled")
	}

	if config.Enrichment.Limit <= 0 {
		return fmt.Errorf("invalid enrichment.limit: %d", config.Enrichment.Limit)
	}
	if config.Enrichment.Alpha <= 0 || config.Enrichment.Alpha > 1 {
		return fmt.Errorf("invalid enrichment.alpha: %v", config.Enrichment.Alpha)
	}
	validCorrections := map[string]bool{"bonferroni": true, "holm": true, "fdr_bh": true}
	if !validCorrections[strings.ToLower(config.Enrichment.Correction)] {
		return fmt.Errorf("invalid enrichment.correction: %s", config.Enrichment.Correction)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsLiteratureEnabled reports whether literature augmentation is configured
func (m *Manager) IsLiteratureEnabled() bool {
	return m.config.Literature.Enabled
}
