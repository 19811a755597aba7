package providers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const searchPerPage = 10

// Resolver turns a search query into a single unused media candidate.
// Transient provider errors are retried with exponential backoff; an
// exhausted result set gets one retry with a simplified query before
// the resolver gives up and returns no candidate, which the caller
// records as an empty section so segment ordering survives.
type Resolver struct {
	registry   *Registry
	dedup      *URLDedup
	maxRetries int
	baseDelay  time.Duration
}

func NewResolver(registry *Registry, dedup *URLDedup, maxRetries int, baseDelay time.Duration) *Resolver {
	return &Resolver{
		registry:   registry,
		dedup:      dedup,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Dedup exposes the shared URL set so a run can reset it up front.
func (r *Resolver) Dedup() *URLDedup {
	return r.dedup
}

// ResolveVideo finds one unused video candidate for the query.
// A nil candidate with nil error means nothing usable was found.
func (r *Resolver) ResolveVideo(ctx context.Context, providerName, query string) (*Candidate, error) {
	p := r.registry.Video(providerName)
	if p == nil {
		return nil, fmt.Errorf("no video provider registered")
	}
	return r.resolve(ctx, query, func(q string) ([]Candidate, error) {
		return p.SearchVideos(ctx, q, searchPerPage)
	})
}

// ResolveImage finds one unused image candidate for the query.
func (r *Resolver) ResolveImage(ctx context.Context, providerName, query string) (*Candidate, error) {
	p := r.registry.Image(providerName)
	if p == nil {
		return nil, fmt.Errorf("no image provider registered")
	}
	return r.resolve(ctx, query, func(q string) ([]Candidate, error) {
		return p.SearchImages(ctx, q, searchPerPage)
	})
}

func (r *Resolver) resolve(ctx context.Context, query string, search func(string) ([]Candidate, error)) (*Candidate, error) {
	candidate, err := r.searchWithRetries(ctx, query, search)
	if err != nil {
		return nil, err
	}
	if candidate != nil {
		return candidate, nil
	}

	// Nothing unused for the full query. Try once more with just the
	// first two words before conceding the segment.
	simplified := simplifyQuery(query)
	if simplified == query {
		return nil, nil
	}

	log.Printf("[Resolver] no results for %q, retrying with simplified query %q", query, simplified)

	candidates, err := search(simplified)
	if err != nil {
		log.Printf("[Resolver] simplified search failed: %v", err)
		return nil, nil
	}

	return r.firstUnused(candidates), nil
}

func (r *Resolver) searchWithRetries(ctx context.Context, query string, search func(string) ([]Candidate, error)) (*Candidate, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryDelay(r.baseDelay, attempt-1)
			log.Printf("[Resolver] search retry %d/%d for %q (waiting %v)", attempt, r.maxRetries, query, delay)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		candidates, err := search(query)
		if err != nil {
			lastErr = err
			log.Printf("[Resolver] search attempt %d failed for %q: %v", attempt+1, query, err)
			continue
		}

		// A successful response with no usable candidates is content-
		// not-found, not a transient failure; stop retrying.
		return r.firstUnused(candidates), nil
	}

	return nil, fmt.Errorf("search failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// firstUnused claims and returns the first candidate whose URL has not
// been placed on a timeline yet.
func (r *Resolver) firstUnused(candidates []Candidate) *Candidate {
	for i := range candidates {
		if r.dedup.MarkUsed(candidates[i].URL) {
			return &candidates[i]
		}
	}
	return nil
}

// simplifyQuery reduces a query to its first two words.
func simplifyQuery(query string) string {
	words := strings.Fields(query)
	if len(words) <= 2 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:2], " ")
}
