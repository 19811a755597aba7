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
	pexelsVideoURL = "https://api.pexels.com/videos/search"
	pexelsPhotoURL = "https://api.pexels.com/v1/search"
)

// Pexels is the default stock provider for both videos and images.
type Pexels struct {
	apiKey string
	client *http.Client

	// Overridable in tests
	videoURL string
	photoURL string
}

func NewPexels(apiKey string) *Pexels {
	return &Pexels{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		videoURL: pexelsVideoURL,
		photoURL: pexelsPhotoURL,
	}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsVideoFile struct {
	Link    string `json:"link"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Quality string `json:"quality"`
}

type pexelsVideoPicture struct {
	Picture string `json:"picture"`
}

type pexelsVideo struct {
	Duration      int                  `json:"duration"`
	Image         string               `json:"image"`
	VideoFiles    []pexelsVideoFile    `json:"video_files"`
	VideoPictures []pexelsVideoPicture `json:"video_pictures"`
}

type pexelsVideoResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

func (p *Pexels) SearchVideos(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("orientation", "landscape")

	var result pexelsVideoResponse
	if err := p.get(ctx, p.videoURL+"?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Videos))
	for _, video := range result.Videos {
		best := bestPexelsFile(video.VideoFiles)
		if best == nil {
			continue
		}

		candidates = append(candidates, Candidate{
			URL:       best.Link,
			Thumbnail: pexelsThumbnail(video),
			Duration:  float64(video.Duration),
			Provider:  p.Name(),
			Width:     best.Width,
			Height:    best.Height,
		})
	}

	return candidates, nil
}

// bestPexelsFile picks the highest-resolution rendition by pixel area.
func bestPexelsFile(files []pexelsVideoFile) *pexelsVideoFile {
	var best *pexelsVideoFile
	bestArea := -1
	for i := range files {
		f := &files[i]
		if f.Link == "" {
			continue
		}
		area := f.Width * f.Height
		if area > bestArea {
			best = f
			bestArea = area
		}
	}
	return best
}

// pexelsThumbnail walks the fallback chain: the video's image field,
// then the first preview picture, then nothing.
func pexelsThumbnail(video pexelsVideo) string {
	if video.Image != "" {
		return video.Image
	}
	if len(video.VideoPictures) > 0 {
		return video.VideoPictures[0].Picture
	}
	return ""
}

type pexelsPhoto struct {
	Src struct {
		Original string `json:"original"`
		Large    string `json:"large"`
		Medium   string `json:"medium"`
	} `json:"src"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type pexelsPhotoResponse struct {
	Photos []pexelsPhoto `json:"photos"`
}

func (p *Pexels) SearchImages(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))

	var result pexelsPhotoResponse
	if err := p.get(ctx, p.photoURL+"?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Photos))
	for _, photo := range result.Photos {
		link := photo.Src.Large
		if link == "" {
			link = photo.Src.Original
		}
		if link == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			URL:       link,
			Thumbnail: photo.Src.Medium,
			Provider:  p.Name(),
			Width:     photo.Width,
			Height:    photo.Height,
		})
	}

	return candidates, nil
}

func (p *Pexels) get(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pexels returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse pexels response: %w", err)
	}

	return nil
}
