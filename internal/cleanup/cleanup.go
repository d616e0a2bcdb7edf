package cleanup

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nikhilbhutani/audioreader/internal/llm"
	"github.com/nikhilbhutani/audioreader/pkg/tokenizer"
)

const promptPrefix = "Please clean and optimize the following text for text-to-speech conversion. Remove any OCR artifacts, fix formatting issues, normalize punctuation, and ensure the text flows naturally when read aloud. Preserve the original meaning and structure:\n\n"

const maxCompletionTokens = 16000

// Completer is the slice of llm.Gateway the cleaner needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Completion, error)
}

// Cleaner rewrites extracted text for speech. It never fails: model errors
// and empty replies fall back to Normalize.
type Cleaner struct {
	model Completer
}

// NewCleaner accepts a nil Completer, in which case only Normalize is applied.
func NewCleaner(c Completer) *Cleaner {
	return &Cleaner{model: c}
}

func (c *Cleaner) Clean(ctx context.Context, raw string) string {
	if c.model == nil {
		return Normalize(raw)
	}

	out, err := c.model.Complete(ctx, llm.Request{
		Prompt:    promptPrefix + raw,
		MaxTokens: tokenizer.CompletionBudget(raw, maxCompletionTokens),
	})
	if err != nil {
		slog.Warn("text cleanup failed, using normalized text", "error", err)
		return Normalize(raw)
	}

	cleaned := strings.TrimSpace(out.Text)
	if cleaned == "" {
		slog.Warn("text cleanup returned empty output, using normalized text", "provider", out.Provider)
		return Normalize(raw)
	}

	slog.Debug("text cleaned",
		"provider", out.Provider,
		"model", out.Model,
		"output_tokens", out.OutputTokens,
		"latency_ms", out.Latency.Milliseconds(),
	)
	return cleaned
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Normalize collapses runs of blank lines to one paragraph break, every
// other whitespace run to a single space, and trims the result.
func Normalize(text string) string {
	paragraphs := paragraphBreak.Split(text, -1)

	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, "\n\n")
}
