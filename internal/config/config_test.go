package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "dailyq", cfg.Name)
	assert.Equal(t, "data/questions.sqlite", cfg.Store.Path)
	assert.Empty(t, cfg.Store.URL)
	assert.Equal(t, "per-device", cfg.Delivery.Mode)
	assert.Equal(t, 10*time.Second, cfg.Delivery.LockTTL)
	assert.Equal(t, 8, cfg.Generator.DefaultCount)
	assert.True(t, cfg.Generator.IDHashSuffix)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Gemini.Model)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadWith(env.Options{Environment: map[string]string{
		"APP_ENV":                  "production",
		"QUESTION_DB_URL":          "postgres://localhost/dailyq",
		"DELIVERY_MODE":            "exclusive",
		"REDIS_ADDR":               "localhost:6379",
		"GENERATOR_DEFAULT_COUNT":  "12",
		"GENERATOR_ID_HASH_SUFFIX": "false",
		"LLM_PROVIDER":             "openai",
		"OPENAI_MODEL":             "gpt-4.1",
		"LLM_TIMEOUT":              "45s",
	}})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://localhost/dailyq", cfg.Store.URL)
	assert.Equal(t, "exclusive", cfg.Delivery.Mode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 12, cfg.Generator.DefaultCount)
	assert.False(t, cfg.Generator.IDHashSuffix)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.OpenAI.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestLoadRejectsUnknownDeliveryMode(t *testing.T) {
	_, err := LoadWith(env.Options{Environment: map[string]string{"DELIVERY_MODE": "broadcast"}})
	assert.ErrorContains(t, err, "DELIVERY_MODE")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := LoadWith(env.Options{Environment: map[string]string{"DELIVERY_LOCK_TTL": "soon"}})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("DAILYQ_DOTENV_MARKER=loaded\n"), 0o600))

	t.Run("production skips the file", func(t *testing.T) {
		t.Setenv("APP_ENV", "Production")
		t.Setenv("DAILYQ_DOTENV_MARKER", "")
		os.Unsetenv("DAILYQ_DOTENV_MARKER")
		require.NoError(t, LoadDotEnv(file))
		_, set := os.LookupEnv("DAILYQ_DOTENV_MARKER")
		assert.False(t, set)
	})

	t.Run("development loads it", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		t.Setenv("DAILYQ_DOTENV_MARKER", "")
		os.Unsetenv("DAILYQ_DOTENV_MARKER")
		require.NoError(t, LoadDotEnv(file))
		assert.Equal(t, "loaded", os.Getenv("DAILYQ_DOTENV_MARKER"))
	})

	t.Run("missing file is fine", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
	})
}
