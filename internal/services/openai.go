package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// searchQueryResult is the JSON shape the model is asked to return.
type searchQueryResult struct {
	Query string `json:"query"`
}

// GenerateSearchQuery distills a script segment into a short stock-media
// search query (4-5 words max). Returns an error when the model produces
// nothing usable; callers fall back to the segment's leading words.
func (s *OpenAIService) GenerateSearchQuery(ctx context.Context, segmentText string) (string, error) {
	systemPrompt := `You generate search queries for stock media sites.
Given a fragment of a narration script, respond with JSON in the form
{"query": "..."} where the query is at most 4-5 words capturing the
visual essence of the fragment. Use concrete nouns, avoid abstract
concepts and punctuation.`

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: segmentText,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})

	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content

	var result searchQueryResult
	if err := json.Unmarshal([]byte(rawContent), &result); err != nil {
		log.Printf("[OpenAI query] parse failed: %v (raw: %s)", err, truncateString(rawContent, 200))
		return "", fmt.Errorf("failed to parse query response: %w", err)
	}

	query := strings.TrimSpace(result.Query)
	if query == "" {
		return "", fmt.Errorf("model returned empty query")
	}

	// Keep queries short even when the model rambles
	words := strings.Fields(query)
	if len(words) > 5 {
		query = strings.Join(words[:5], " ")
	}

	return query, nil
}

// GenerateImage produces an AI image for a segment prompt and returns
// the raw PNG bytes.
func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	log.Printf("[OpenAI image] generating image (promptLen=%d)", len(prompt))

	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Model:          openai.CreateImageModelDallE3,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no image in openai response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	log.Printf("[OpenAI image] generated %d bytes", len(data))
	return data, nil
}

// truncateString limits a string for log output
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
