package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := PgConfig{Database: "tornado", Username: "tornado", Password: "secret"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)

	for name, cfg := range map[string]PgConfig{
		"missing database": {Username: "u", Password: "p"},
		"missing username": {Database: "d", Password: "p"},
		"missing password": {Database: "d", Username: "u"},
		"min above max":    {Database: "d", Username: "u", Password: "p", MinConns: 5, MaxConns: 4},
	} {
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestPgConfig_ConnString(t *testing.T) {
	t.Parallel()

	cfg := PgConfig{Host: "db", Port: "6432", Database: "tornado", Username: "app", Password: "p@ss/word", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:6432/tornado?sslmode=require", cfg.ConnString())
}

func TestPgConfigFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "pg")
	t.Setenv("POSTGRES_DB", "tornado")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "true")

	cfg := PgConfigFromEnv()
	assert.Equal(t, "pg", cfg.Host)
	assert.Equal(t, "tornado", cfg.Database)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.Port)
}
