// Package playback maps an audio playback position onto the word and
// sentence being read.
package playback

import (
	"math"
	"sort"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/pkg/chunker"
)

type Mode string

const (
	ModeWord     Mode = "word"
	ModeSentence Mode = "sentence"
)

type Position struct {
	WordIndex     int `json:"wordIndex"`
	SentenceIndex int `json:"sentenceIndex"`
}

// Synchronizer tracks the highlighted token for one document. It is not
// safe for concurrent use; a player owns one and feeds it time updates.
type Synchronizer struct {
	Mode Mode

	words     []string
	sentences []string
	marks     []models.SpeechMark
	// sentenceOf[i] is the sentence containing word i.
	sentenceOf []int

	pos Position
}

// New builds a Synchronizer over cleaned text. Marks are normalized so
// lookups can assume ascending time and in-range word indices.
func New(cleanedText string, marks []models.SpeechMark, mode Mode) *Synchronizer {
	words := chunker.Words(cleanedText)
	sentences := chunker.Sentences(cleanedText)

	sentenceOf := make([]int, 0, len(words))
	for i, s := range sentences {
		for range chunker.Words(s) {
			sentenceOf = append(sentenceOf, i)
		}
	}

	if mode != ModeSentence {
		mode = ModeWord
	}

	return &Synchronizer{
		Mode:       mode,
		words:      words,
		sentences:  sentences,
		marks:      models.NormalizeSpeechMarks(marks, len(words)),
		sentenceOf: sentenceOf,
	}
}

func (s *Synchronizer) Words() []string     { return s.words }
func (s *Synchronizer) Sentences() []string { return s.sentences }
func (s *Synchronizer) HasMarks() bool      { return len(s.marks) > 0 }
func (s *Synchronizer) Position() Position  { return s.pos }

// Active is the highlighted index for the configured mode.
func (s *Synchronizer) Active() int {
	if s.Mode == ModeSentence {
		return s.pos.SentenceIndex
	}
	return s.pos.WordIndex
}

// Update recomputes the position for currentTime and duration in seconds.
func (s *Synchronizer) Update(currentTime, duration float64) Position {
	if len(s.marks) > 0 {
		s.updateFromMarks(currentTime)
		return s.pos
	}

	if duration <= 0 || math.IsNaN(duration) || math.IsNaN(currentTime) {
		return s.pos
	}
	progress := currentTime / duration

	if s.Mode == ModeSentence {
		s.pos.SentenceIndex = proportional(progress, len(s.sentences))
	} else {
		s.pos.WordIndex = proportional(progress, len(s.words))
	}
	return s.pos
}

func (s *Synchronizer) updateFromMarks(currentTime float64) {
	ms := int64(math.Floor(currentTime * 1000))

	// first mark that starts after ms; the active one is just before it
	i := sort.Search(len(s.marks), func(i int) bool { return s.marks[i].Time > ms })
	if i == 0 {
		return
	}

	word := s.marks[i-1].WordIndex
	s.pos.WordIndex = word
	if word < len(s.sentenceOf) {
		s.pos.SentenceIndex = s.sentenceOf[word]
	}
}

// End resets the position when playback finishes.
func (s *Synchronizer) End() {
	s.pos = Position{}
}

// SeekTime returns the playback offset for a clicked token. It uses the
// proportional estimate even when marks exist.
func (s *Synchronizer) SeekTime(index int, mode Mode, duration float64) float64 {
	count := len(s.words)
	if mode == ModeSentence {
		count = len(s.sentences)
	}
	if count == 0 || index <= 0 {
		return 0
	}
	if index >= count {
		index = count - 1
	}
	return float64(index) / float64(count) * duration
}

func proportional(progress float64, count int) int {
	if count == 0 {
		return 0
	}
	idx := int(math.Floor(progress * float64(count)))
	return max(0, min(idx, count-1))
}
