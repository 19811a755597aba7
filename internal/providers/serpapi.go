package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const serpAPIURL = "https://serpapi.com/search.json"

// SerpAPI searches Google Images. It is the preferred image source when
// a key is configured; stock providers cover the gap otherwise.
type SerpAPI struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewSerpAPI(apiKey string) *SerpAPI {
	return &SerpAPI{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: serpAPIURL,
	}
}

func (s *SerpAPI) Name() string { return "google" }

type serpImageResult struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
	Width     int    `json:"original_width"`
	Height    int    `json:"original_height"`
}

type serpResponse struct {
	ImagesResults []serpImageResult `json:"images_results"`
}

func (s *SerpAPI) SearchImages(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serpapi returned status %d: %s", resp.StatusCode, string(body))
	}

	var result serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse serpapi response: %w", err)
	}

	limit := len(result.ImagesResults)
	if perPage > 0 && perPage < limit {
		limit = perPage
	}

	candidates := make([]Candidate, 0, limit)
	for _, img := range result.ImagesResults[:limit] {
		if img.Original == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:       img.Original,
			Thumbnail: img.Thumbnail,
			Provider:  s.Name(),
			Width:     img.Width,
			Height:    img.Height,
		})
	}

	return candidates, nil
}
