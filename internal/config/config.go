package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Extract  ExtractConfig
	Storage  StorageConfig
	TTS      TTSConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig is optional; an empty URL disables the pipeline audit trail.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	MaxConnIdle time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieSecure bool
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
}

type ExtractConfig struct {
	Backend   string // "gemini" or "local"
	GoogleKey string
	Model     string
}

type StorageConfig struct {
	Backend        string // "supabase" or "minio"
	SupabaseURL    string
	SupabaseKey    string
	Bucket         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioPublicURL string
}

type TTSConfig struct {
	PollyURL      string // primary endpoint; empty means unconfigured
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIVoice   string
	DefaultVoice  string
}

type QueueConfig struct {
	Mode        string // "asynq" or "local"
	Concurrency int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	maxConnIdle, err := getEnvDuration("DB_MAX_CONN_IDLE", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONN_IDLE: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	tokenTTL, err := getEnvDuration("AUTH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
	}

	useSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
	}

	cookieSecure, err := getEnvBool("AUTH_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_COOKIE_SECURE: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    maxConns,
			MinConns:    minConns,
			MaxConnIdle: maxConnIdle,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:     tokenTTL,
			CookieName:   getEnv("AUTH_COOKIE_NAME", "ai-audio-reader-session"),
			CookieSecure: cookieSecure,
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
		},
		Extract: ExtractConfig{
			Backend:   getEnv("EXTRACT_BACKEND", "gemini"),
			GoogleKey: getEnv("GOOGLE_API_KEY", ""),
			Model:     getEnv("EXTRACT_MODEL", "gemini-1.5-flash"),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "supabase"),
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:         getEnv("STORAGE_BUCKET", "documents"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			MinioUseSSL:    useSSL,
			MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		TTS: TTSConfig{
			PollyURL:      getEnv("POLLY_API_URL", ""),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("TTS_OPENAI_MODEL", "tts-1"),
			OpenAIVoice:   getEnv("TTS_OPENAI_VOICE", "alloy"),
			DefaultVoice:  getEnv("TTS_DEFAULT_VOICE", "Joanna"),
		},
		Queue: QueueConfig{
			Mode:        getEnv("QUEUE_MODE", "asynq"),
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("missing required env var: AUTH_JWT_SECRET"))
	}
	if err := c.ValidatePipeline(); err != nil {
		errs = append(errs, err)
	}
	switch c.Queue.Mode {
	case "asynq", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_MODE %q", c.Queue.Mode))
	}
	return errors.Join(errs...)
}

// ValidatePipeline checks what the extraction, synthesis and storage stages
// need. cmd/worker runs only these stages and never issues sessions.
func (c *Config) ValidatePipeline() error {
	var missing []string
	if c.Extract.Backend == "gemini" && c.Extract.GoogleKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if c.TTS.OpenAIKey == "" && c.TTS.PollyURL == "" {
		missing = append(missing, "OPENAI_API_KEY or POLLY_API_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	switch c.Storage.Backend {
	case "supabase", "minio":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Extract.Backend {
	case "gemini", "local":
	default:
		return fmt.Errorf("unknown EXTRACT_BACKEND %q", c.Extract.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
