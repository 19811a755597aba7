package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bobarin/clipforge/internal/models"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/bobarin/clipforge/internal/services"
	"github.com/google/uuid"
)

// How long intermediate files stick around after a concatenation, so a
// client fetching the result isn't pulled out from under.
const cleanupDelay = time.Hour

// durationWarnTolerance is how far the stitched video may drift from the
// sum of its parts before the mismatch is worth logging. Drift is
// expected (encoder frame alignment); it is never fatal.
const durationWarnTolerance = 1.0

// timelineClip is one normalized file ready for the concat list.
type timelineClip struct {
	Path     string
	Duration float64 // Target duration the clip was normalized to
}

// handleConcatenate builds the final video for a job: download every
// content record, normalize each onto the shared canvas at its stored
// duration, then stitch the survivors in order.
func (w *Worker) handleConcatenate(ctx context.Context, task *queue.Task) error {
	job, err := w.db.GetJob(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	content, err := w.db.GetJobContent(ctx, job.ID, "")
	if err != nil {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		return fmt.Errorf("failed to get job content: %w", err)
	}
	if len(content) == 0 {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		return fmt.Errorf("no content to concatenate for job %s", job.ID)
	}

	if err := w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusProcessing); err != nil {
		return fmt.Errorf("failed to update concat status: %w", err)
	}

	sessionDir := filepath.Join(w.cfg.TempDir, uuid.New().String())
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	sortByCreatedAt(content)

	clips := w.prepareClips(ctx, content, sessionDir)

	valid := w.validateClips(ctx, clips)
	if len(valid) == 0 {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		os.RemoveAll(sessionDir)
		return fmt.Errorf("no valid clips to concatenate for job %s", job.ID)
	}

	outputName := outputFilename(job.ID, time.Now().Unix())
	outputPath := filepath.Join(sessionDir, outputName)

	paths := make([]string, len(valid))
	for i, clip := range valid {
		paths[i] = clip.Path
	}

	if err := w.ffmpeg.ConcatenateVideos(ctx, paths, outputPath); err != nil {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		os.RemoveAll(sessionDir)
		return fmt.Errorf("concatenation failed: %w", err)
	}

	// Duration drift is informational only
	if actual, err := w.ffmpeg.GetDuration(ctx, outputPath); err == nil {
		expected := expectedDuration(valid)
		if math.Abs(actual-expected) > durationWarnTolerance {
			log.Printf("Job %s: final video duration %.2fs differs from expected %.2fs", job.ID, actual, expected)
		} else {
			log.Printf("Job %s: final video %.2fs (expected %.2fs)", job.ID, actual, expected)
		}
	}

	if err := os.MkdirAll(w.cfg.OutputDir, 0755); err != nil {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	permanentPath := filepath.Join(w.cfg.OutputDir, outputName)
	if err := copyFile(outputPath, permanentPath); err != nil {
		w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusFailed)
		return fmt.Errorf("failed to store final video: %w", err)
	}

	absolutePath, err := filepath.Abs(permanentPath)
	if err != nil {
		absolutePath = permanentPath
	}

	if err := w.db.UpdateJobVideoURL(ctx, job.ID, absolutePath); err != nil {
		return fmt.Errorf("failed to store video path: %w", err)
	}

	if err := w.db.UpdateConcatenatedVideoStatus(ctx, job.ID, models.ConcatStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark concat completed: %w", err)
	}

	log.Printf("Job %s: final video saved to %s (%d of %d clips)", job.ID, absolutePath, len(valid), len(content))

	// Intermediates linger long enough for the result to be served
	time.AfterFunc(cleanupDelay, func() {
		if err := os.RemoveAll(sessionDir); err != nil {
			log.Printf("Job %s: session cleanup failed: %v", job.ID, err)
		}
	})

	return nil
}

// prepareClips downloads and normalizes each content record. A failed
// item is logged and dropped; order is preserved for the survivors.
func (w *Worker) prepareClips(ctx context.Context, content []models.ContentRecord, sessionDir string) []timelineClip {
	var clips []timelineClip
	for i, item := range content {
		clip, err := w.prepareClip(ctx, item, sessionDir, i)
		if err != nil {
			log.Printf("Skipping content item %d (%s): %v", i, item.ContentType, err)
			continue
		}
		clips = append(clips, clip)
	}
	return clips
}

func (w *Worker) prepareClip(ctx context.Context, item models.ContentRecord, sessionDir string, index int) (timelineClip, error) {
	target := item.Duration
	if target <= 0 {
		target = 5.0
	}

	outputPath := filepath.Join(sessionDir, fmt.Sprintf("processed_%d.mp4", index))

	switch item.ContentType {
	case models.ContentTypeVideo:
		inputPath := filepath.Join(sessionDir, fmt.Sprintf("input_%d.mp4", index))
		if err := w.fetchMedia(ctx, item.URL, inputPath); err != nil {
			return timelineClip{}, fmt.Errorf("download failed: %w", err)
		}

		actual, err := w.ffmpeg.GetDuration(ctx, inputPath)
		if err != nil {
			return timelineClip{}, fmt.Errorf("probe failed: %w", err)
		}

		mode := services.ChooseMode(actual, target)
		if err := w.ffmpeg.StandardizeVideo(ctx, inputPath, outputPath, target, mode); err != nil {
			return timelineClip{}, err
		}

	case models.ContentTypeImage, models.ContentTypeAIImage:
		inputPath := filepath.Join(sessionDir, fmt.Sprintf("input_%d.jpg", index))
		if err := w.fetchMedia(ctx, item.URL, inputPath); err != nil {
			return timelineClip{}, fmt.Errorf("download failed: %w", err)
		}

		if err := w.ffmpeg.ImageToVideo(ctx, inputPath, outputPath, target); err != nil {
			return timelineClip{}, err
		}

	default:
		return timelineClip{}, fmt.Errorf("unknown content type %q", item.ContentType)
	}

	return timelineClip{Path: outputPath, Duration: target}, nil
}

// fetchMedia pulls a content URL to a local file, going through the
// storage client for bucket-hosted media and the plain downloader for
// anything external.
func (w *Worker) fetchMedia(ctx context.Context, url, destPath string) error {
	if path, ok := w.storage.PathFromPublicURL(url); ok {
		data, err := w.storage.Download(ctx, path)
		if err != nil {
			return err
		}
		return os.WriteFile(destPath, data, 0644)
	}

	_, err := w.downloader.Download(ctx, url, destPath)
	return err
}

// validateClips re-checks every prepared file right before the concat
// list is written: it must still exist and probe to a positive duration.
// Invalid entries are dropped, order preserved.
func (w *Worker) validateClips(ctx context.Context, clips []timelineClip) []timelineClip {
	var valid []timelineClip
	for _, clip := range clips {
		if _, err := os.Stat(clip.Path); err != nil {
			log.Printf("Dropping clip %s: %v", clip.Path, err)
			continue
		}

		duration, err := w.ffmpeg.GetDuration(ctx, clip.Path)
		if err != nil || duration <= 0 {
			log.Printf("Dropping clip %s: unreadable or zero duration (%v)", clip.Path, err)
			continue
		}

		valid = append(valid, clip)
	}
	return valid
}

func sortByCreatedAt(content []models.ContentRecord) {
	sort.SliceStable(content, func(i, j int) bool {
		return content[i].CreatedAt.Before(content[j].CreatedAt)
	})
}

func outputFilename(jobID uuid.UUID, unixTime int64) string {
	return fmt.Sprintf("job_%s_%d.mp4", jobID, unixTime)
}

func expectedDuration(clips []timelineClip) float64 {
	total := 0.0
	for _, clip := range clips {
		total += clip.Duration
	}
	return total
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
