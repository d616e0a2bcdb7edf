package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/audioreader/internal/config"
)

var ErrNoProvider = errors.New("no llm provider configured")

// Gateway sends a request to the default provider with quadratic backoff
// between attempts, then to the fallback provider once the retries run out.
type Gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	defaultModel     string
	fallbackProvider string
	maxRetries       int
	backoff          time.Duration
}

func NewGateway(cfg config.LLMConfig) *Gateway {
	g := &Gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  cfg.DefaultProvider,
		defaultModel:     cfg.DefaultModel,
		fallbackProvider: cfg.FallbackProvider,
		maxRetries:       cfg.MaxRetries,
		backoff:          500 * time.Millisecond,
	}

	if cfg.OpenAIKey != "" {
		g.Register(NewOpenAIProvider(cfg.OpenAIKey, ""))
	}
	if cfg.AnthropicKey != "" {
		g.Register(NewAnthropicProvider(cfg.AnthropicKey, ""))
	}
	if cfg.OllamaURL != "" {
		g.Register(NewOllamaProvider(cfg.OllamaURL))
	}

	return g
}

func (g *Gateway) Register(p Provider) {
	g.providers[p.Name()] = p
}

// Configured reports whether any provider is registered.
func (g *Gateway) Configured() bool {
	return len(g.providers) > 0
}

func (g *Gateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	if !g.Configured() {
		return nil, ErrNoProvider
	}

	name := req.Provider
	if name == "" {
		name = g.defaultProvider
	}

	out, err := g.completeWithRetry(ctx, name, req)
	if err == nil || g.fallbackProvider == "" || g.fallbackProvider == name || ctx.Err() != nil {
		return out, err
	}

	slog.Warn("llm provider failed, trying fallback", "provider", name, "fallback", g.fallbackProvider, "error", err)
	return g.completeWithRetry(ctx, g.fallbackProvider, req)
}

func (g *Gateway) completeWithRetry(ctx context.Context, name string, req Request) (*Completion, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("llm provider %q not configured", name)
	}

	if req.Model == "" {
		req.Model = p.DefaultModel()
		if name == g.defaultProvider && g.defaultModel != "" {
			req.Model = g.defaultModel
		}
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt*attempt) * g.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			slog.Debug("retrying llm completion", "provider", name, "attempt", attempt)
		}

		out, err := p.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", name, g.maxRetries+1, lastErr)
}
