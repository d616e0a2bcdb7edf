package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words splits text into whitespace-separated tokens. Speech mark word
// indices refer to positions in this slice.
func Words(text string) []string {
	return strings.Fields(text)
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace.
// The terminating punctuation stays with its sentence; empty pieces are dropped.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = appendTrimmed(sentences, current.String())
			current.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}

	if current.Len() > 0 {
		sentences = appendTrimmed(sentences, current.String())
	}

	return sentences
}

func appendTrimmed(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(dst, s)
	}
	return dst
}

// Pack groups sentences into segments of at most limit runes, joined by a
// single space. A sentence longer than limit is split on words, and a word
// longer than limit is split at the rune boundary.
func Pack(text string, limit int) []string {
	if limit <= 0 {
		limit = 1000
	}

	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	add := func(piece string) {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(piece) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}

	for _, sentence := range Sentences(text) {
		if utf8.RuneCountInString(sentence) <= limit {
			add(sentence)
			continue
		}
		for _, word := range Words(sentence) {
			for _, part := range splitFixed(word, limit) {
				add(part)
			}
		}
	}
	flush()

	return segments
}

func splitFixed(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}

	var result []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		result = append(result, string(runes[i:end]))
	}
	return result
}
