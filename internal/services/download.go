package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	downloadTimeout    = 120 * time.Second
	downloadMaxRetries = 3
	downloadBaseDelay  = 1 * time.Second
)

// Downloader fetches resolved media URLs to local files before
// normalization.
type Downloader struct {
	client *http.Client
}

func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: downloadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Download streams a URL to destPath, retrying transient failures with
// exponential backoff. Returns the response Content-Type.
func (d *Downloader) Download(ctx context.Context, url, destPath string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= downloadMaxRetries; attempt++ {
		if attempt > 0 {
			delay := downloadRetryDelay(attempt)
			log.Printf("[Download] retry %d/%d for %s (waiting %v)", attempt, downloadMaxRetries, url, delay)

			select {
			case <-ctx.Done():
				return "", fmt.Errorf("download cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		contentType, err := d.attempt(ctx, url, destPath)
		if err == nil {
			return contentType, nil
		}

		lastErr = err
		log.Printf("[Download] attempt %d failed for %s: %v", attempt+1, url, err)
	}

	return "", fmt.Errorf("download failed after %d attempts: %w", downloadMaxRetries+1, lastErr)
}

func (d *Downloader) attempt(ctx context.Context, url, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return resp.Header.Get("Content-Type"), nil
}

// IsSVG reports whether a downloaded image needs rasterizing before the
// image-to-video path can use it.
func IsSVG(contentType, url string) bool {
	if strings.Contains(strings.ToLower(contentType), "svg") {
		return true
	}
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".svg")
}

func downloadRetryDelay(attempt int) time.Duration {
	delay := float64(downloadBaseDelay) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}
