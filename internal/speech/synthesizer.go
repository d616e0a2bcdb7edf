package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/storage"
	"github.com/nikhilbhutani/audioreader/pkg/chunker"
)

const audioContentType = "audio/mpeg"

type Result struct {
	AudioURL    string
	SpeechMarks []models.SpeechMark
	Provider    Provider
}

// Audio is transient synthesized audio for previews.
type Audio struct {
	Data        []byte
	ContentType string
	Provider    Provider
}

// Synthesizer produces document audio, trying the primary provider first and
// falling back to the secondary one.
type Synthesizer struct {
	primary   *PollyClient  // nil when unconfigured
	secondary *OpenAISpeech // nil when unconfigured
	storage   storage.Storage
}

func NewSynthesizer(primary *PollyClient, secondary *OpenAISpeech, store storage.Storage) *Synthesizer {
	return &Synthesizer{
		primary:   primary,
		secondary: secondary,
		storage:   store,
	}
}

// Synthesize writes the audio for documentID to its deterministic key and
// returns its URL with speech marks sorted and bounded to text's words.
func (s *Synthesizer) Synthesize(ctx context.Context, text, documentID, voiceID string) (*Result, error) {
	log := slog.With("document_id", documentID, "voice_id", voiceID)

	var primaryErr error
	if s.primary != nil {
		res, err := s.synthesizePrimary(ctx, text, documentID, voiceID)
		if err == nil {
			return res, nil
		}
		primaryErr = err
		log.Warn("primary synthesis failed, falling back", "error", err)
	}

	if s.secondary == nil {
		if primaryErr != nil {
			return nil, &Error{Err: primaryErr}
		}
		return nil, &Error{Err: ErrNotConfigured}
	}

	audio, err := s.secondary.Synthesize(ctx, text, "")
	if err != nil {
		return nil, &Error{Err: errors.Join(primaryErr, err)}
	}

	url, err := s.upload(ctx, documentID, audio)
	if err != nil {
		return nil, &Error{Err: errors.Join(primaryErr, err)}
	}

	log.Info("audio synthesized", "provider", ProviderSecondary, "bytes", len(audio))
	return &Result{AudioURL: url, SpeechMarks: []models.SpeechMark{}, Provider: ProviderSecondary}, nil
}

func (s *Synthesizer) synthesizePrimary(ctx context.Context, text, documentID, voiceID string) (*Result, error) {
	res, err := s.primary.Synthesize(ctx, text, voiceID)
	if err != nil {
		return nil, err
	}

	url, err := s.upload(ctx, documentID, res.Audio)
	if err != nil {
		return nil, err
	}

	marks := models.NormalizeSpeechMarks(res.Marks, len(chunker.Words(text)))
	slog.Info("audio synthesized",
		"document_id", documentID,
		"provider", ProviderPrimary,
		"bytes", len(res.Audio),
		"speech_marks", len(marks),
	)
	return &Result{AudioURL: url, SpeechMarks: marks, Provider: ProviderPrimary}, nil
}

func (s *Synthesizer) upload(ctx context.Context, documentID string, audio []byte) (string, error) {
	url, err := s.storage.Upload(ctx, storage.AudioPath(documentID), bytes.NewReader(audio), audioContentType)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	return url, nil
}

// Preview speaks sampleText with voiceID without persisting anything. The
// provider is the one whose catalog lists the voice.
func (s *Synthesizer) Preview(ctx context.Context, sampleText, voiceID string) (*Audio, error) {
	provider, err := ProviderForVoice(voiceID)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ProviderPrimary:
		if s.primary == nil {
			return nil, fmt.Errorf("preview %s: %w", provider, ErrNotConfigured)
		}
		res, err := s.primary.Synthesize(ctx, sampleText, voiceID)
		if err != nil {
			return nil, &Error{Err: err}
		}
		return &Audio{Data: res.Audio, ContentType: audioContentType, Provider: provider}, nil

	case ProviderSecondary:
		if s.secondary == nil {
			return nil, fmt.Errorf("preview %s: %w", provider, ErrNotConfigured)
		}
		data, err := s.secondary.Synthesize(ctx, sampleText, voiceID)
		if err != nil {
			return nil, &Error{Err: err}
		}
		return &Audio{Data: data, ContentType: audioContentType, Provider: provider}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voiceID)
}
