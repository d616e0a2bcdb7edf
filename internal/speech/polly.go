package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/audioreader/internal/models"
)

var errNoAudioChunks = errors.New("no audio chunks received from polly")

// PollyClient calls an HTTP front for Amazon Polly that returns the audio
// as base64 chunks together with word-level speech marks.
type PollyClient struct {
	url        string
	httpClient *http.Client
}

func NewPollyClient(url string) *PollyClient {
	return &PollyClient{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type pollyRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

type pollyResponse struct {
	AudioChunks []string            `json:"audioChunks"`
	SpeechMarks []models.SpeechMark `json:"speechMarks"`
}

type pollyResult struct {
	Audio []byte
	Marks []models.SpeechMark
}

func (p *PollyClient) Synthesize(ctx context.Context, text, voiceID string) (*pollyResult, error) {
	body, err := json.Marshal(pollyRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create polly request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polly request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("polly api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var pr pollyResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode polly response: %w", err)
	}
	if len(pr.AudioChunks) == 0 {
		return nil, errNoAudioChunks
	}

	audio, err := base64.StdEncoding.DecodeString(strings.Join(pr.AudioChunks, ""))
	if err != nil {
		return nil, fmt.Errorf("decode audio chunks: %w", err)
	}
	if len(audio) == 0 {
		return nil, errNoAudioChunks
	}

	return &pollyResult{Audio: audio, Marks: pr.SpeechMarks}, nil
}
