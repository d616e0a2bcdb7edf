package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("QUEUE_MODE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "asynq", cfg.Queue.Mode)
	assert.Equal(t, "tts-1", cfg.TTS.OpenAIModel)
	assert.Equal(t, "alloy", cfg.TTS.OpenAIVoice)
	assert.Equal(t, "Joanna", cfg.TTS.DefaultVoice)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "SERVER_PORT", "abc"},
		{"redis db", "REDIS_DB", "x"},
		{"token ttl", "AUTH_TOKEN_TTL", "forever"},
		{"minio ssl", "MINIO_USE_SSL", "maybe"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			assert.ErrorContains(t, err, tc.key)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("POLLY_API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	cfg.Auth.JWTSecret = "secret"
	cfg.Extract.Backend = "local"
	cfg.TTS.OpenAIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Queue.Mode = "kafka"
	assert.ErrorContains(t, cfg.Validate(), "QUEUE_MODE")
}

func TestValidatePipeline(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("POLLY_API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Extract.Backend = "local"

	assert.ErrorContains(t, cfg.ValidatePipeline(), "OPENAI_API_KEY or POLLY_API_URL")

	cfg.TTS.PollyURL = "http://polly.internal/synthesize"
	assert.NoError(t, cfg.ValidatePipeline(), "worker config needs no session secret")

	cfg.Storage.Backend = "ftp"
	assert.ErrorContains(t, cfg.ValidatePipeline(), "STORAGE_BACKEND")
}
