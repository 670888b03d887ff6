package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "DATABASE_TYPE", "DATABASE_URL", "DATABASE_LOG", "AUTH_MODE", "DEFAULT_GENRE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "pop", cfg.DefaultGenre)
	assert.False(t, cfg.DatabaseLog)
	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.IsGatewayMode())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_URL", "generations.db")
	t.Setenv("DATABASE_LOG", "true")
	t.Setenv("AUTH_MODE", "gateway")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.HasDatabase())
	assert.True(t, cfg.IsGatewayMode())
	assert.True(t, cfg.DatabaseLog)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
}

func TestGetBoolFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "not-a-bool")
	assert.True(t, getBool("SOME_FLAG", true))
}
