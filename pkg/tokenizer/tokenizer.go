package tokenizer

import (
	"strings"
)

// CountTokens provides a rough token count estimate.
func CountTokens(text string) int {
	// ~4/3 tokens per English word
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}

// CompletionBudget sizes a completion that rewrites text of roughly the same
// length, with headroom, capped at ceiling.
func CompletionBudget(text string, ceiling int) int {
	budget := CountTokens(text)*5/4 + 64
	if ceiling > 0 && budget > ceiling {
		return ceiling
	}
	return budget
}
