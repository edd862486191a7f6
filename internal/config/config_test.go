package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCoreVars(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "",
		"REDIS_URL":        "",
		"ADMIN_JWT_SECRET": "",
	})
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost/pnh",
		"REDIS_URL":              "redis://localhost:6379",
		"ADMIN_JWT_SECRET":       "secret",
		"PORT":                   "",
		"PRICING_CURRENCY_CODE":  "",
		"PRICING_CURRENCY_SYMBOL": "",
		"CATALOG_CACHE_TTL":      "",
		"RATE_LIMIT_PER_MINUTE":  "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, "$", cfg.CurrencySymbol)
	require.Equal(t, time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.False(t, cfg.MigrateOnStart)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost/pnh",
		"REDIS_URL":               "redis://localhost:6379",
		"ADMIN_JWT_SECRET":        "secret",
		"PORT":                    "9090",
		"PRICING_CURRENCY_CODE":   "BDT",
		"PRICING_CURRENCY_SYMBOL": "৳",
		"DB_MIGRATE":              "true",
		"CORS_ALLOWED_ORIGINS":    "https://shop.example.com, https://admin.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "BDT", cfg.CurrencyCode)
	require.Equal(t, "৳", cfg.CurrencySymbol)
	require.True(t, cfg.MigrateOnStart)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}
