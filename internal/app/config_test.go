package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/adverts-listing/adverts/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_API_URL", "https://catalog.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 30*time.Second, cfg.AppRequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.CatalogAPITimeout)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "*/10 * * * *", cfg.WarmupCron)
	assert.Equal(t, 3, cfg.WarmupPages)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresCatalogURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_API_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsRelativeCatalogURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_API_URL", "catalog.local")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestLoadConfigReadsOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_API_URL", "http://catalog:9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("WARMUP_PAGES", "0")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
	assert.Equal(t, 0, cfg.WarmupPages)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
}

func TestInTestModeFollowsGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}
