package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/audioreader/internal/api"
	"github.com/nikhilbhutani/audioreader/internal/api/handlers"
	"github.com/nikhilbhutani/audioreader/internal/auth"
	"github.com/nikhilbhutani/audioreader/internal/bootstrap"
	"github.com/nikhilbhutani/audioreader/internal/cache"
	"github.com/nikhilbhutani/audioreader/internal/config"
	"github.com/nikhilbhutani/audioreader/internal/document"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
	"github.com/nikhilbhutani/audioreader/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer comps.Close()

	// Background runs go to the asynq worker, or to an in-process pool in local mode.
	var shutdownDispatcher func() error
	switch cfg.Queue.Mode {
	case "local":
		d := pipeline.NewLocalDispatcher(context.Background(), comps.Pipeline, cfg.Queue.Concurrency, 64)
		comps.Pipeline.SetDispatcher(d)
		shutdownDispatcher = d.Shutdown
	default:
		qc := queue.NewClient(cfg.Redis)
		comps.Pipeline.SetDispatcher(qc)
		shutdownDispatcher = qc.Close
	}

	checks := map[string]handlers.Pinger{"redis": comps.Store}
	var events handlers.EventLog
	if comps.DB != nil {
		checks["postgres"] = comps.DB
		events = comps.Audit
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := api.NewRouter(api.Deps{
		Config:       cfg,
		Auth:         auth.NewService(comps.Store, issuer),
		Issuer:       issuer,
		Users:        comps.Store,
		Documents:    document.NewService(comps.Store, comps.Storage),
		Pipeline:     comps.Pipeline,
		Previewer:    comps.Synthesizer,
		Events:       events,
		LoginLimiter: cache.NewAttemptLimiter(comps.Redis, "login-attempt", 5, time.Minute),
		Checks:       checks,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(ctx),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "queue_mode", cfg.Queue.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := shutdownDispatcher(); err != nil {
		slog.Error("dispatcher shutdown", "error", err)
	}
	slog.Info("server stopped")
}
