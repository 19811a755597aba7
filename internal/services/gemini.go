package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

const defaultGeminiImageModel = "gemini-2.0-flash-preview-image-generation"

// GeminiService generates AI images through the Google Gen AI SDK.
type GeminiService struct {
	apiKey string
	model  string
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = defaultGeminiImageModel
	}
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
	}
}

// GenerateImage returns the raw bytes of a generated image for the
// prompt.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Printf("[Gemini] generating image (model=%s, promptLen=%d)", s.model, len(prompt))

	result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image request failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Printf("[Gemini] generated %d bytes (%s)", len(part.InlineData.Data), part.InlineData.MIMEType)
			return part.InlineData.Data, nil
		}
	}

	return nil, fmt.Errorf("gemini response contained no image data")
}
