package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reports")
	t.Setenv("PRODUCT_NAME", "")
	t.Setenv("REPORTS_STRICT_TOTALS", "")
	t.Setenv("WORKER_INTERVAL", "")
	t.Setenv("FEATURE_CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "invoiceninja", cfg.ProductName)
	assert.False(t, cfg.StrictTotals)
	assert.Equal(t, time.Minute, cfg.WorkerInterval)
	assert.Equal(t, time.Minute, cfg.FeatureTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reports")
	t.Setenv("PRODUCT_NAME", "acme")
	t.Setenv("REPORTS_STRICT_TOTALS", "true")
	t.Setenv("WORKER_INTERVAL", "5m")
	t.Setenv("WORKER_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.ProductName)
	assert.True(t, cfg.StrictTotals)
	assert.Equal(t, 5*time.Minute, cfg.WorkerInterval)
	assert.Equal(t, 50, cfg.WorkerBatchSize)
}

func TestLoad_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}
