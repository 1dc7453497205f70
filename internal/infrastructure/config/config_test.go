package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": testSecret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.True(t, cfg.Mongo.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        testSecret,
		"ENV":               "production",
		"STORAGE_DRIVER":    "sqlite",
		"SQLITE_PATH":       "/tmp/x.db",
		"TOKEN_TTL":         "1h",
		"AUDIT_ENABLED":     "false",
		"CATALOG_CACHE_TTL": "250ms",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLitePath)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.Mongo.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.CacheTTL)
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"unknown driver", map[string]string{"JWT_SECRET": testSecret, "STORAGE_DRIVER": "mysql"}},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "TOKEN_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}
