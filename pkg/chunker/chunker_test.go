package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"Hello", "world.", "Bye"}, Words("  Hello \n world.\tBye "))
	assert.Empty(t, Words("   "))
}

func TestSentences(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want []string
	}{
		{"single", "Hello world.", []string{"Hello world."}},
		{"mixed punctuation", "One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"newline separator", "First.\n\nSecond.", []string{"First.", "Second."}},
		{"no split without whitespace", "v1.2 is out.", []string{"v1.2 is out."}},
		{"empty", "  ", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sentences(tc.text))
		})
	}
}

func TestPackRespectsLimit(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 50) + strings.Repeat("x", 25)

	segments := Pack(text, 60)

	assert.NotEmpty(t, segments)
	for _, s := range segments {
		assert.LessOrEqual(t, utf8.RuneCountInString(s), 60)
	}
	assert.Equal(t, Words(text), Words(strings.Join(segments, " ")))
}

func TestPackSplitsOversizedWord(t *testing.T) {
	segments := Pack(strings.Repeat("a", 10), 4)
	assert.Equal(t, []string{"aaaa", "aaaa", "aa"}, segments)
}

func TestPackShortText(t *testing.T) {
	assert.Equal(t, []string{"Hello world."}, Pack("Hello world.", 4096))
	assert.Empty(t, Pack("", 4096))
}
