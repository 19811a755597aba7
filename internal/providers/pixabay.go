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

const (
	pixabayVideoURL = "https://pixabay.com/api/videos/"
	pixabayImageURL = "https://pixabay.com/api/"
)

type Pixabay struct {
	apiKey string
	client *http.Client

	videoURL string
	imageURL string
}

func NewPixabay(apiKey string) *Pixabay {
	return &Pixabay{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		videoURL: pixabayVideoURL,
		imageURL: pixabayImageURL,
	}
}

func (p *Pixabay) Name() string { return "pixabay" }

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayVideoHit struct {
	Duration int `json:"duration"`
	Videos   struct {
		Tiny   pixabayRendition `json:"tiny"`
		Small  pixabayRendition `json:"small"`
		Medium pixabayRendition `json:"medium"`
		Large  pixabayRendition `json:"large"`
	} `json:"videos"`
}

type pixabayVideoResponse struct {
	Hits []pixabayVideoHit `json:"hits"`
}

func (p *Pixabay) SearchVideos(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))

	var result pixabayVideoResponse
	if err := p.get(ctx, p.videoURL+"?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		rendition := pickPixabayRendition(hit)
		if rendition == nil {
			continue
		}

		candidates = append(candidates, Candidate{
			URL:      rendition.URL,
			Duration: float64(hit.Duration),
			Provider: p.Name(),
			Width:    rendition.Width,
			Height:   rendition.Height,
		})
	}

	return candidates, nil
}

// pickPixabayRendition prefers the smaller renditions. Everything gets
// normalized to 854x480 downstream, so larger files only cost download
// time.
func pickPixabayRendition(hit pixabayVideoHit) *pixabayRendition {
	for _, r := range []pixabayRendition{hit.Videos.Tiny, hit.Videos.Small, hit.Videos.Medium, hit.Videos.Large} {
		if r.URL != "" {
			r := r
			return &r
		}
	}
	return nil
}

type pixabayImageHit struct {
	LargeImageURL string `json:"largeImageURL"`
	WebformatURL  string `json:"webformatURL"`
	PreviewURL    string `json:"previewURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
}

type pixabayImageResponse struct {
	Hits []pixabayImageHit `json:"hits"`
}

func (p *Pixabay) SearchImages(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("image_type", "photo")

	var result pixabayImageResponse
	if err := p.get(ctx, p.imageURL+"?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		link := hit.LargeImageURL
		if link == "" {
			link = hit.WebformatURL
		}
		if link == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			URL:       link,
			Thumbnail: hit.PreviewURL,
			Provider:  p.Name(),
			Width:     hit.ImageWidth,
			Height:    hit.ImageHeight,
		})
	}

	return candidates, nil
}

func (p *Pixabay) get(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pixabay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pixabay returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse pixabay response: %w", err)
	}

	return nil
}
