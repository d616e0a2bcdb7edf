package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/audioreader/pkg/chunker"
)

// maxInputChars is the OpenAI speech endpoint's input limit.
const maxInputChars = 4096

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
	Voice   string // voice used for document audio; default: "alloy"
}

// OpenAISpeech synthesizes MP3 through the OpenAI speech endpoint.
type OpenAISpeech struct {
	client *openai.Client
	model  string
	voice  string
}

func NewOpenAISpeech(cfg OpenAIConfig) *OpenAISpeech {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAISpeech{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		voice:  cfg.Voice,
	}
}

// Synthesize speaks text with voice, or the configured voice when empty.
// Text over the input limit is sent in sentence-aligned segments and the
// MP3 streams are concatenated.
func (o *OpenAISpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = o.voice
	}

	segments := []string{text}
	if len([]rune(text)) > maxInputChars {
		segments = chunker.Pack(text, maxInputChars)
	}

	var audio bytes.Buffer
	for i, segment := range segments {
		if err := o.synthesizeSegment(ctx, segment, voice, &audio); err != nil {
			return nil, fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
	}

	return audio.Bytes(), nil
}

func (o *OpenAISpeech) synthesizeSegment(ctx context.Context, text, voice string, dst io.Writer) error {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	if _, err := io.Copy(dst, resp); err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	return nil
}
