package speech

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Provider names one of the two synthesis backends.
type Provider string

const (
	// ProviderPrimary is the Polly-style endpoint returning base64 chunks and speech marks.
	ProviderPrimary Provider = "polly"
	// ProviderSecondary is OpenAI text-to-speech returning raw MP3 without timing.
	ProviderSecondary Provider = "openai"
)

// DefaultVoice is used when a processing request names no voice.
const DefaultVoice = "Joanna"

var (
	PrimaryVoices   = []string{"Joanna", "Matthew", "Amy", "Brian", "Emma", "Olivia", "Salli", "Kimberly", "Kendra", "Justin", "Joey"}
	SecondaryVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
)

var (
	ErrUnknownVoice  = errors.New("unknown voice")
	ErrNotConfigured = errors.New("synthesis provider not configured")
)

// ProviderForVoice selects the provider whose catalog contains voiceID.
func ProviderForVoice(voiceID string) (Provider, error) {
	switch {
	case lo.Contains(PrimaryVoices, voiceID):
		return ProviderPrimary, nil
	case lo.Contains(SecondaryVoices, voiceID):
		return ProviderSecondary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVoice, voiceID)
	}
}

// Voice is a catalog entry as listed to clients.
type Voice struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
}

// Catalog lists every selectable voice, primary voices first.
func Catalog() []Voice {
	primary := lo.Map(PrimaryVoices, func(id string, _ int) Voice {
		return Voice{ID: id, Provider: ProviderPrimary}
	})
	secondary := lo.Map(SecondaryVoices, func(id string, _ int) Voice {
		return Voice{ID: id, Provider: ProviderSecondary}
	})
	return append(primary, secondary...)
}

// Error is returned when no synthesis path succeeded.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "Failed to convert text to speech: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
