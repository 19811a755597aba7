package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobarin/clipforge/internal/models"
	"github.com/bobarin/clipforge/internal/pacing"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/google/uuid"
)

// handleRegenerate swaps out the media behind a single content record
// without disturbing its place on the timeline. The record's url,
// thumbnail, and duration are replaced in place.
func (w *Worker) handleRegenerate(ctx context.Context, task *queue.Task) error {
	contentID, query, err := parseRegenerateTask(task)
	if err != nil {
		return err
	}

	record, err := w.db.GetContentRecord(ctx, contentID)
	if err != nil {
		return fmt.Errorf("failed to get content record: %w", err)
	}

	job, err := w.db.GetJob(ctx, record.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	if query == "" && record.SearchQuery != nil {
		query = *record.SearchQuery
	}
	if query == "" && record.SegmentText != nil {
		query = firstWords(*record.SegmentText, 4)
	}
	if query == "" {
		return fmt.Errorf("no query available for content %s", contentID)
	}

	sessionDir := filepath.Join(w.cfg.TempDir, uuid.New().String())
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	defer os.RemoveAll(sessionDir)

	log.Printf("Regenerating content %s (%s) with query %q", contentID, record.ContentType, query)

	segment := regenerateSegment(record)

	var replacement *models.ContentRecord
	switch record.ContentType {
	case models.ContentTypeVideo:
		replacement, err = w.resolveVideoSegment(ctx, job, sessionDir, segment, query)
	case models.ContentTypeAIImage:
		replacement, err = w.generateImageSegment(ctx, job, sessionDir, segment, query)
	default:
		replacement, err = w.resolveImageSegment(ctx, job, sessionDir, segment, query)
	}
	if err != nil {
		return fmt.Errorf("regeneration failed: %w", err)
	}
	if replacement == nil {
		return fmt.Errorf("no replacement found for content %s", contentID)
	}

	if err := w.db.UpdateContentRecord(ctx, record.ID, replacement.URL, replacement.Thumbnail, replacement.Duration); err != nil {
		return fmt.Errorf("failed to update content record: %w", err)
	}

	log.Printf("Content %s regenerated", contentID)
	return nil
}

// regenerateSegment reconstructs just enough segment context for the
// resolve helpers to run against an existing record.
func regenerateSegment(record *models.ContentRecord) pacing.Segment {
	text := ""
	if record.SegmentText != nil {
		text = *record.SegmentText
	}
	return pacing.Segment{
		Index:    record.SegmentIndex,
		Text:     text,
		Duration: record.Duration,
	}
}

func parseRegenerateTask(task *queue.Task) (uuid.UUID, string, error) {
	raw, ok := task.Data["content_id"].(string)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("regenerate task missing content_id")
	}

	contentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid content_id: %w", err)
	}

	query, _ := task.Data["query"].(string)
	return contentID, strings.TrimSpace(query), nil
}
