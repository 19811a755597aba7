// Package providers resolves script segments to stock media. Each
// provider client turns a short search query into candidate media; the
// resolver layers retries, deduplication, and query simplification on
// top.
package providers

import (
	"context"
	"log"
	"strings"
)

// Candidate is one piece of media a provider offered for a query.
type Candidate struct {
	URL       string
	Thumbnail string // Empty when the provider offered none
	Duration  float64
	Provider  string
	Width     int
	Height    int
}

type VideoSearcher interface {
	Name() string
	SearchVideos(ctx context.Context, query string, perPage int) ([]Candidate, error)
}

type ImageSearcher interface {
	Name() string
	SearchImages(ctx context.Context, query string, perPage int) ([]Candidate, error)
}

// Registry maps provider names to clients and owns the default choice.
// Asking for an unknown provider substitutes the default out loud rather
// than silently.
type Registry struct {
	videos       map[string]VideoSearcher
	images       map[string]ImageSearcher
	defaultVideo string
	defaultImage string
}

func NewRegistry(defaultVideo, defaultImage string) *Registry {
	return &Registry{
		videos:       make(map[string]VideoSearcher),
		images:       make(map[string]ImageSearcher),
		defaultVideo: defaultVideo,
		defaultImage: defaultImage,
	}
}

func (r *Registry) RegisterVideo(p VideoSearcher) {
	r.videos[p.Name()] = p
}

func (r *Registry) RegisterImage(p ImageSearcher) {
	r.images[p.Name()] = p
}

func (r *Registry) Video(name string) VideoSearcher {
	name = strings.ToLower(strings.TrimSpace(name))
	if p, ok := r.videos[name]; ok {
		return p
	}
	log.Printf("[Providers] unsupported video provider %q, substituting %q", name, r.defaultVideo)
	return r.videos[r.defaultVideo]
}

func (r *Registry) Image(name string) ImageSearcher {
	name = strings.ToLower(strings.TrimSpace(name))
	if p, ok := r.images[name]; ok {
		return p
	}
	log.Printf("[Providers] unsupported image provider %q, substituting %q", name, r.defaultImage)
	return r.images[r.defaultImage]
}
