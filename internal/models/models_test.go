package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"source_provider": "pexels",
		"query":           "ocean waves",
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["query"] != "ocean waves" {
		t.Errorf("expected query=ocean waves, got %v", result["query"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"provider": "pixabay", "attempts": 2}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["provider"] != "pixabay" {
		t.Errorf("expected provider=pixabay, got %v", j["provider"])
	}

	if j["attempts"].(float64) != 2 {
		t.Errorf("expected attempts=2, got %v", j["attempts"])
	}
}

func TestConcatStatusString(t *testing.T) {
	cases := map[ConcatStatus]string{
		ConcatStatusNotStarted: "not_started",
		ConcatStatusPending:    "pending",
		ConcatStatusProcessing: "processing",
		ConcatStatusCompleted:  "completed",
		ConcatStatusFailed:     "failed",
		ConcatStatus(99):       "unknown",
	}

	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("ConcatStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestContentTypeValid(t *testing.T) {
	for _, valid := range []ContentType{ContentTypeVideo, ContentTypeImage, ContentTypeAIImage} {
		if !valid.Valid() {
			t.Errorf("%s should be valid", valid)
		}
	}
	for _, invalid := range []ContentType{"", "gif", "videos"} {
		if invalid.Valid() {
			t.Errorf("%q should not be valid", invalid)
		}
	}
}

func TestJobModes(t *testing.T) {
	modes := []JobMode{
		JobModeVideos,
		JobModeImages,
		JobModeMixed,
		JobModeAIImages,
	}

	for _, mode := range modes {
		if mode == "" {
			t.Errorf("empty mode found")
		}
	}
}
