package providers

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeSearcher scripts responses per query for resolver tests.
type fakeSearcher struct {
	name      string
	responses map[string][]Candidate
	errs      map[string]error
	calls     []string
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) SearchVideos(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.responses[query], nil
}

func (f *fakeSearcher) SearchImages(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	return f.SearchVideos(ctx, query, perPage)
}

func newTestResolver(f *fakeSearcher) *Resolver {
	registry := NewRegistry(f.name, f.name)
	registry.RegisterVideo(f)
	registry.RegisterImage(f)
	return NewResolver(registry, NewURLDedup(), 2, time.Millisecond)
}

func TestResolveVideoPicksFirstCandidate(t *testing.T) {
	fake := &fakeSearcher{
		name: "pexels",
		responses: map[string][]Candidate{
			"ocean waves crashing": {
				{URL: "https://cdn.example/a.mp4", Duration: 12},
				{URL: "https://cdn.example/b.mp4", Duration: 8},
			},
		},
	}
	r := newTestResolver(fake)

	candidate, err := r.ResolveVideo(context.Background(), "pexels", "ocean waves crashing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil || candidate.URL != "https://cdn.example/a.mp4" {
		t.Fatalf("expected first candidate, got %+v", candidate)
	}
}

func TestResolveVideoSkipsUsedURLs(t *testing.T) {
	// Both results for the second query were already used, so the
	// resolver must come back empty rather than repeat a clip.
	fake := &fakeSearcher{
		name: "pexels",
		responses: map[string][]Candidate{
			"ocean waves": {{URL: "https://cdn.example/a.mp4"}},
		},
	}
	r := newTestResolver(fake)

	first, err := r.ResolveVideo(context.Background(), "pexels", "ocean waves")
	if err != nil || first == nil {
		t.Fatalf("first resolve failed: %v %v", first, err)
	}

	second, err := r.ResolveVideo(context.Background(), "pexels", "ocean waves")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no candidate for duplicate URL, got %+v", second)
	}
}

func TestResolveVideoSimplifiedQueryRetry(t *testing.T) {
	fake := &fakeSearcher{
		name: "pexels",
		responses: map[string][]Candidate{
			"sunset over mountain lake": nil,
			"sunset over":               {{URL: "https://cdn.example/sunset.mp4"}},
		},
	}
	r := newTestResolver(fake)

	candidate, err := r.ResolveVideo(context.Background(), "pexels", "sunset over mountain lake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil || candidate.URL != "https://cdn.example/sunset.mp4" {
		t.Fatalf("expected simplified-query candidate, got %+v", candidate)
	}

	if len(fake.calls) != 2 {
		t.Errorf("expected 2 searches (full + simplified), got %d: %v", len(fake.calls), fake.calls)
	}
	if fake.calls[1] != "sunset over" {
		t.Errorf("simplified query = %q, want first two words", fake.calls[1])
	}
}

func TestResolveVideoNotFoundShortQuery(t *testing.T) {
	// Two-word query can't be simplified further; one search, then give up.
	fake := &fakeSearcher{name: "pexels"}
	r := newTestResolver(fake)

	candidate, err := r.ResolveVideo(context.Background(), "pexels", "ocean waves")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected nil candidate, got %+v", candidate)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected 1 search, got %d", len(fake.calls))
	}
}

func TestResolveVideoTransientErrorsExhaustRetries(t *testing.T) {
	fake := &fakeSearcher{
		name: "pexels",
		errs: map[string]error{
			"storm clouds": fmt.Errorf("connection reset"),
		},
	}
	r := newTestResolver(fake)

	_, err := r.ResolveVideo(context.Background(), "pexels", "storm clouds")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	// maxRetries=2 means 3 total attempts
	if len(fake.calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(fake.calls))
	}
}

func TestRegistrySubstitutesDefaultProvider(t *testing.T) {
	fake := &fakeSearcher{
		name: "pexels",
		responses: map[string][]Candidate{
			"city lights": {{URL: "https://cdn.example/city.mp4"}},
		},
	}
	r := newTestResolver(fake)

	candidate, err := r.ResolveVideo(context.Background(), "unsupported-provider", "city lights")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil || candidate.URL != "https://cdn.example/city.mp4" {
		t.Fatalf("expected default provider to serve the search, got %+v", candidate)
	}
}

func TestSimplifyQuery(t *testing.T) {
	cases := map[string]string{
		"sunset over mountain lake": "sunset over",
		"ocean waves":               "ocean waves",
		"storm":                     "storm",
		"":                          "",
	}
	for in, want := range cases {
		if got := simplifyQuery(in); got != want {
			t.Errorf("simplifyQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
