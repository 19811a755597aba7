package storage

import (
	"testing"

	"github.com/google/uuid"
)

func TestPathFromPublicURLRoundTrip(t *testing.T) {
	s := New("https://project.supabase.co", "service-key", "clipforge-media")

	jobID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	storagePath := s.GenerateStoragePath(jobID, "segment_0.mp4")

	url := s.GetPublicURL(storagePath)
	got, ok := s.PathFromPublicURL(url)
	if !ok {
		t.Fatalf("public URL %q should map back to a bucket path", url)
	}
	if got != storagePath {
		t.Errorf("round trip = %q, want %q", got, storagePath)
	}
}

func TestPathFromPublicURLRejectsExternal(t *testing.T) {
	s := New("https://project.supabase.co", "service-key", "clipforge-media")

	external := []string{
		"https://cdn.pexels.example/video.mp4",
		"https://project.supabase.co/storage/v1/object/public/other-bucket/file.mp4",
		"https://other.supabase.co/storage/v1/object/public/clipforge-media/file.mp4",
	}
	for _, url := range external {
		if path, ok := s.PathFromPublicURL(url); ok {
			t.Errorf("%q should not map to a bucket path, got %q", url, path)
		}
	}
}
