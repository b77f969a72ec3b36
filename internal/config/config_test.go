package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "toolhub-aggregates", cfg.KafkaConsumerGroup)
	assert.Equal(t, 50, cfg.ReviewMaxDepth)
}

func TestLoad_InvalidReviewDepth(t *testing.T) {
	t.Setenv("REVIEW_MAX_DEPTH", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "review max depth")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOOLHUB_HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "db.internal", cfg.Postgres().Host)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("TOOLHUB_HTTP_PORT", "99999")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestPostgresDSN(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	dsn := cfg.Postgres().DSN()
	assert.Contains(t, dsn, "postgres://toolhub:")
	assert.Contains(t, dsn, "sslmode=disable")
}
