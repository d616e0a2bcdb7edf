package llm

import (
	"context"
	"time"
)

// Provider completes a single prompt. Implementations: OpenAI, Anthropic, Ollama.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Name() string
	DefaultModel() string
}

// Request is one instruction-following turn. System is optional.
type Request struct {
	Provider    string
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type Completion struct {
	Provider     string
	Model        string
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}
