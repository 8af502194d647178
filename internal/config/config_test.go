package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfta-mcp-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Enrichment.Limit)
	assert.Equal(t, 0.01, cfg.Enrichment.Alpha)
	assert.Equal(t, "bonferroni", cfg.Enrichment.Correction)
	assert.True(t, cfg.Enrichment.PropagateCounts)
	assert.Equal(t, []string{"medscan"}, cfg.Literature.LowPrecisionSources)
	assert.Equal(t, 30*time.Minute, cfg.Store.ConnMaxLifetime)
	assert.False(t, m.IsLiteratureEnabled())
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TFTA_SERVER_PORT", "9090")
	t.Setenv("TFTA_STORE_TFTA_DB_PATH", "/data/tfta.db")
	t.Setenv("TFTA_ENRICHMENT_LIMIT", "10")
	t.Setenv("TFTA_CACHE_TTL", "6h")
	t.Setenv("TFTA_LITERATURE_ENABLED", "true")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/data/tfta.db", m.GetStoreConfig().TFTADBPath)
	assert.Equal(t, 10, cfg.Enrichment.Limit)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.True(t, m.IsLiteratureEnabled())
}

func TestManager_Validate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(c *domain.Config)
		wantErr string
	}{
		{"bad port", func(c *domain.Config) { c.Server.Port = 0 }, "invalid server port"},
		{"missing store", func(c *domain.Config) { c.Store.TFTADBPath = "" }, "tfta_db_path"},
		{"bad limit", func(c *domain.Config) { c.Enrichment.Limit = 0 }, "enrichment.limit"},
		{"bad alpha", func(c *domain.Config) { c.Enrichment.Alpha = 2 }, "enrichment.alpha"},
		{"bad correction", func(c *domain.Config) { c.Enrichment.Correction = "sidak" }, "enrichment.correction"},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"literature without url", func(c *domain.Config) {
			c.Literature.Enabled = true
			c.Literature.BaseURL = ""
		}, "literature base URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)

			tt.mutate(m.GetConfig())
			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(domain.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, isText := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	logger.Debug("hello")
	assert.Contains(t, buf.String(), "hello")

	fallback := newLogger(domain.LoggingConfig{Level: "nonsense"}, &buf)
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
	_, isJSON := fallback.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
