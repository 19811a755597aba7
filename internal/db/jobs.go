package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobarin/clipforge/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, script, mode, provider, speaking_rate,
			videos_per_minute, images_per_minute, video_ratio,
			status, concatenated_video_status, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Script, job.Mode, job.Provider, job.SpeakingRate,
		job.VideosPerMinute, job.ImagesPerMinute, job.VideoRatio,
		job.Status, job.ConcatenatedVideoStatus, job.Metadata,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `
		SELECT
			id, script, mode, provider, speaking_rate,
			videos_per_minute, images_per_minute, video_ratio,
			status, error_message, segment_count, processed_segment_count,
			video_segments_completed, concatenated_video_status, video_url,
			metadata, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	job := &models.Job{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Script, &job.Mode, &job.Provider, &job.SpeakingRate,
		&job.VideosPerMinute, &job.ImagesPerMinute, &job.VideoRatio,
		&job.Status, &job.ErrorMessage, &job.SegmentCount, &job.ProcessedSegmentCount,
		&job.VideoSegmentsCompleted, &job.ConcatenatedVideoStatus, &job.VideoURL,
		&job.Metadata, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	query := `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, time.Now(), id)
	return err
}

func (db *DB) UpdateSegmentCount(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE jobs SET segment_count = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, count, time.Now(), id)
	return err
}

func (db *DB) UpdateProcessedSegmentCount(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE jobs SET processed_segment_count = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, count, time.Now(), id)
	return err
}

func (db *DB) UpdateVideoSegmentsCompleted(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE jobs SET video_segments_completed = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, count, time.Now(), id)
	return err
}

func (db *DB) UpdateConcatenatedVideoStatus(ctx context.Context, id uuid.UUID, status models.ConcatStatus) error {
	query := `UPDATE jobs SET concatenated_video_status = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateJobVideoURL(ctx context.Context, id uuid.UUID, videoURL string) error {
	query := `UPDATE jobs SET video_url = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, videoURL, time.Now(), id)
	return err
}

// ResetJobProgress clears counters and error state before a job restart.
// Existing content records for the job are removed so the rerun starts clean.
func (db *DB) ResetJobProgress(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = NULL,
			segment_count = 0, processed_segment_count = 0,
			video_segments_completed = 0,
			concatenated_video_status = $2, video_url = NULL,
			updated_at = $3
		WHERE id = $4
	`
	if _, err := db.ExecContext(ctx, query, models.JobStatusPending, models.ConcatStatusNotStarted, time.Now(), id); err != nil {
		return fmt.Errorf("failed to reset job: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM job_content WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear job content: %w", err)
	}

	return nil
}
