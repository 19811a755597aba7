package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/bobarin/clipforge/internal/models"
	"github.com/bobarin/clipforge/internal/pacing"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/google/uuid"
)

func TestPickContentType(t *testing.T) {
	tests := []struct {
		name       string
		mode       models.JobMode
		index      int
		videoRatio float64
		roll       float64
		want       models.ContentType
	}{
		{"videos mode", models.JobModeVideos, 5, 0, 0.9, models.ContentTypeVideo},
		{"images mode", models.JobModeImages, 0, 1.0, 0.0, models.ContentTypeImage},
		{"ai images mode", models.JobModeAIImages, 2, 0, 0.5, models.ContentTypeAIImage},
		{"mixed every third is video", models.JobModeMixed, 3, 0, 0.99, models.ContentTypeVideo},
		{"mixed index zero is video", models.JobModeMixed, 0, 0, 0.99, models.ContentTypeVideo},
		{"mixed ratio wins roll", models.JobModeMixed, 1, 0.8, 0.5, models.ContentTypeVideo},
		{"mixed ratio loses roll", models.JobModeMixed, 1, 0.2, 0.5, models.ContentTypeImage},
		{"mixed zero ratio off-beat", models.JobModeMixed, 2, 0, 0.5, models.ContentTypeImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickContentType(tt.mode, tt.index, tt.videoRatio, tt.roll)
			if got != tt.want {
				t.Errorf("pickContentType(%s, %d, %.1f, %.1f) = %s, want %s",
					tt.mode, tt.index, tt.videoRatio, tt.roll, got, tt.want)
			}
		})
	}
}

func TestContentPerMinute(t *testing.T) {
	w := &Worker{cfg: Config{VideosPerMinute: 10, ImagesPerMinute: 8}}

	job := &models.Job{Mode: models.JobModeVideos, VideosPerMinute: 12}
	if got := w.contentPerMinute(job); got != 12 {
		t.Errorf("videos mode = %.1f, want 12", got)
	}

	job = &models.Job{Mode: models.JobModeImages}
	if got := w.contentPerMinute(job); got != 8 {
		t.Errorf("images mode default = %.1f, want 8", got)
	}

	// Mixed mode draws from both pools
	job = &models.Job{Mode: models.JobModeMixed, VideosPerMinute: 6, ImagesPerMinute: 4}
	if got := w.contentPerMinute(job); got != 10 {
		t.Errorf("mixed mode = %.1f, want 10", got)
	}

	job = &models.Job{Mode: models.JobModeAIImages}
	if got := w.contentPerMinute(job); got != 8 {
		t.Errorf("ai_images mode default = %.1f, want 8", got)
	}
}

func TestSegmentSucceeded(t *testing.T) {
	if !segmentSucceeded(&models.ContentRecord{}, nil) {
		t.Error("stored record should count as success")
	}
	// Failed and empty segments must not advance the progress counters
	if segmentSucceeded(nil, errors.New("download failed")) {
		t.Error("failed segment should not count as success")
	}
	if segmentSucceeded(nil, nil) {
		t.Error("empty section should not count as success")
	}
}

func TestNewContentRecord(t *testing.T) {
	job := &models.Job{ID: uuid.New()}
	segment := pacing.Segment{Index: 2, Text: "city street at night", Duration: 1.5}

	record := newContentRecord(job, segment, models.ContentTypeVideo,
		"https://cdn.example/v.mp4", "https://cdn.example/t.jpg", "city street", 3.0)

	if record.JobID != job.ID || record.SegmentIndex != 2 {
		t.Errorf("unexpected identity fields: %+v", record)
	}
	if record.Duration != 3.0 {
		t.Errorf("duration = %v, want floored 3.0", record.Duration)
	}
	if record.Thumbnail == nil || *record.Thumbnail != "https://cdn.example/t.jpg" {
		t.Errorf("unexpected thumbnail: %v", record.Thumbnail)
	}

	// Above the floor the segment's own duration wins; no thumbnail
	// stays nil
	record = newContentRecord(job, pacing.Segment{Duration: 5}, models.ContentTypeVideo,
		"https://cdn.example/v.mp4", "", "", 3.0)
	if record.Duration != 5 {
		t.Errorf("duration = %v, want 5", record.Duration)
	}
	if record.Thumbnail != nil {
		t.Errorf("expected nil thumbnail, got %v", *record.Thumbnail)
	}
}

func TestGeneratedImageIsOwnThumbnail(t *testing.T) {
	url := "https://project.supabase.co/storage/v1/object/public/clipforge-media/jobs/x/segment_0.png"
	record := newContentRecord(&models.Job{ID: uuid.New()}, pacing.Segment{Duration: 4},
		models.ContentTypeAIImage, url, url, "mountain sunrise", 2.0)

	if record.Thumbnail == nil || *record.Thumbnail != record.URL {
		t.Errorf("generated image should be its own thumbnail, got %v", record.Thumbnail)
	}
}

func TestFirstWords(t *testing.T) {
	if got := firstWords("the quick brown fox jumps", 4); got != "the quick brown fox" {
		t.Errorf("firstWords = %q", got)
	}
	if got := firstWords("two words", 4); got != "two words" {
		t.Errorf("short input = %q", got)
	}
	if got := firstWords("   ", 4); got != "" {
		t.Errorf("blank input = %q", got)
	}
}

func TestSortByCreatedAt(t *testing.T) {
	base := time.Now()
	content := []models.ContentRecord{
		{SegmentIndex: 2, CreatedAt: base.Add(2 * time.Second)},
		{SegmentIndex: 0, CreatedAt: base},
		{SegmentIndex: 1, CreatedAt: base.Add(time.Second)},
	}

	sortByCreatedAt(content)

	for i, record := range content {
		if record.SegmentIndex != i {
			t.Errorf("position %d has segment %d", i, record.SegmentIndex)
		}
	}
}

func TestOutputFilename(t *testing.T) {
	jobID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := outputFilename(jobID, 1700000000)
	want := "job_11111111-2222-3333-4444-555555555555_1700000000.mp4"
	if got != want {
		t.Errorf("outputFilename = %q, want %q", got, want)
	}
}

func TestExpectedDuration(t *testing.T) {
	clips := []timelineClip{
		{Duration: 3.0},
		{Duration: 4.5},
		{Duration: 2.5},
	}
	if got := expectedDuration(clips); got != 10.0 {
		t.Errorf("expectedDuration = %.1f, want 10.0", got)
	}
	if got := expectedDuration(nil); got != 0 {
		t.Errorf("empty expectedDuration = %.1f, want 0", got)
	}
}

func TestRegenerateSegment(t *testing.T) {
	text := "a calm mountain lake"
	record := &models.ContentRecord{
		SegmentIndex: 3,
		SegmentText:  &text,
		Duration:     4.5,
	}

	segment := regenerateSegment(record)
	if segment.Index != 3 || segment.Text != text || segment.Duration != 4.5 {
		t.Errorf("unexpected segment: %+v", segment)
	}

	// Missing text is tolerated
	segment = regenerateSegment(&models.ContentRecord{SegmentIndex: 1, Duration: 2.0})
	if segment.Text != "" {
		t.Errorf("expected empty text, got %q", segment.Text)
	}
}

func TestParseRegenerateTask(t *testing.T) {
	contentID := uuid.New()
	task := &queue.Task{
		Data: map[string]interface{}{
			"content_id": contentID.String(),
			"query":      "  ocean waves  ",
		},
	}

	gotID, gotQuery, err := parseRegenerateTask(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != contentID {
		t.Errorf("content ID = %s, want %s", gotID, contentID)
	}
	if gotQuery != "ocean waves" {
		t.Errorf("query = %q, want trimmed", gotQuery)
	}

	if _, _, err := parseRegenerateTask(&queue.Task{Data: map[string]interface{}{}}); err == nil {
		t.Error("expected error for missing content_id")
	}

	if _, _, err := parseRegenerateTask(&queue.Task{Data: map[string]interface{}{"content_id": "not-a-uuid"}}); err == nil {
		t.Error("expected error for malformed content_id")
	}
}

func TestRunRegistry(t *testing.T) {
	registry := NewRunRegistry()
	jobID := uuid.New()

	gen1 := registry.Begin(jobID)
	if registry.Superseded(jobID, gen1) {
		t.Error("fresh run should not be superseded")
	}

	gen2 := registry.Begin(jobID)
	if !registry.Superseded(jobID, gen1) {
		t.Error("restart should supersede the older run")
	}
	if registry.Superseded(jobID, gen2) {
		t.Error("newest run should not be superseded")
	}

	// Finishing a stale generation leaves the current one intact
	registry.Finish(jobID, gen1)
	if registry.Superseded(jobID, gen2) {
		t.Error("stale finish should not affect the current run")
	}

	registry.Finish(jobID, gen2)
	gen3 := registry.Begin(jobID)
	if gen3 != 1 {
		t.Errorf("generation after finish = %d, want 1", gen3)
	}
}
