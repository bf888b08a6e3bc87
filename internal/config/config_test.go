package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("SEED_DEMO", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.MongoURI)
	assert.Equal(t, "logbook", cfg.MongoDB)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.SeedDemo)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	content := "LOGBOOK_TEST_PORT=9191\nMQTT_TOPIC_PREFIX=garage\nALERT_DEDUP_TTL=90m\nREDIS_DB=notanumber\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LOGBOOK_TEST_PORT")
		os.Unsetenv("MQTT_TOPIC_PREFIX")
		os.Unsetenv("ALERT_DEDUP_TTL")
		os.Unsetenv("REDIS_DB")
	})

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "9191", os.Getenv("LOGBOOK_TEST_PORT"))
	assert.Equal(t, "garage", cfg.MQTTTopicPrefix)
	assert.Equal(t, 90*time.Minute, cfg.AlertDedupTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestConfigureLogger(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	cfg.ConfigureLogger()
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	cfg = &Config{LogLevel: "loud", LogFormat: "text"}
	cfg.ConfigureLogger()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
