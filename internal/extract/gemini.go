package extract

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	pdfPrompt   = "Extract all text from this PDF document. Return only the text content in the order it appears, preserving paragraph breaks and structure. Do not include any descriptions or explanations."
	imagePrompt = "Extract all text from this image. Return only the text content, no descriptions or explanations."
)

// contentGenerator is satisfied by (*genai.Client).Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend sends the file inline to a Gemini model with a fixed
// transcription prompt.
type GeminiBackend struct {
	models contentGenerator
	model  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{models: client.Models, model: model}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	prompt := imagePrompt
	if mimeType == "application/pdf" {
		prompt = pdfPrompt
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}
