// Package bootstrap builds the pipeline's collaborators from configuration.
// cmd/api and cmd/worker share it so both processes run identical pipelines.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/audioreader/internal/audit"
	"github.com/nikhilbhutani/audioreader/internal/cleanup"
	"github.com/nikhilbhutani/audioreader/internal/config"
	"github.com/nikhilbhutani/audioreader/internal/database"
	"github.com/nikhilbhutani/audioreader/internal/extract"
	"github.com/nikhilbhutani/audioreader/internal/llm"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
	"github.com/nikhilbhutani/audioreader/internal/speech"
	"github.com/nikhilbhutani/audioreader/internal/storage"
	"github.com/nikhilbhutani/audioreader/internal/store"
)

type Components struct {
	Redis       *redis.Client
	Store       *store.Store
	Storage     storage.Storage
	Synthesizer *speech.Synthesizer
	Pipeline    *pipeline.Service

	// DB and Audit are nil without DATABASE_URL.
	DB    *pgxpool.Pool
	Audit *audit.Service
}

// New connects to Redis (and Postgres when configured) and wires the pipeline.
// The caller attaches a dispatcher and calls Close on shutdown.
func New(ctx context.Context, cfg *config.Config) (*Components, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c := &Components{Redis: rdb, Store: store.New(rdb)}

	blobs, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Storage = blobs

	backend, err := NewExtractBackend(ctx, cfg.Extract)
	if err != nil {
		c.Close()
		return nil, err
	}

	var events pipeline.EventRecorder
	if cfg.Database.URL != "" {
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.DB = pool
		if err := database.RunMigrations(ctx, pool); err != nil {
			c.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		c.Audit = audit.NewService(pool)
		events = c.Audit
	} else {
		slog.Info("DATABASE_URL not set, pipeline audit trail disabled")
	}

	c.Synthesizer = NewSynthesizer(cfg.TTS, blobs)
	c.Pipeline = pipeline.NewService(pipeline.Deps{
		Store:       c.Store,
		Extractor:   extract.NewService(backend),
		Cleaner:     NewCleaner(cfg.LLM),
		Synthesizer: c.Synthesizer,
		Events:      events,
	}, cfg.TTS.DefaultVoice)

	return c, nil
}

func (c *Components) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
}

func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "supabase":
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	case "minio":
		s, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func NewExtractBackend(ctx context.Context, cfg config.ExtractConfig) (extract.Backend, error) {
	switch cfg.Backend {
	case "gemini":
		b, err := extract.NewGeminiBackend(ctx, cfg.GoogleKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini extraction: %w", err)
		}
		return b, nil
	case "local":
		return extract.NewLocalBackend(), nil
	}
	return nil, fmt.Errorf("unknown extraction backend %q", cfg.Backend)
}

// NewCleaner falls back to local normalization only when no LLM provider is configured.
func NewCleaner(cfg config.LLMConfig) *cleanup.Cleaner {
	gw := llm.NewGateway(cfg)
	if !gw.Configured() {
		slog.Info("no llm provider configured, cleanup uses local normalization")
		return cleanup.NewCleaner(nil)
	}
	return cleanup.NewCleaner(gw)
}

// NewSynthesizer leaves a provider out when it has no credentials.
func NewSynthesizer(cfg config.TTSConfig, blobs storage.Storage) *speech.Synthesizer {
	var primary *speech.PollyClient
	if cfg.PollyURL != "" {
		primary = speech.NewPollyClient(cfg.PollyURL)
	}

	var secondary *speech.OpenAISpeech
	if cfg.OpenAIKey != "" {
		secondary = speech.NewOpenAISpeech(speech.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Voice:   cfg.OpenAIVoice,
		})
	}

	return speech.NewSynthesizer(primary, secondary, blobs)
}
