package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/clipforge/internal/models"
	"github.com/google/uuid"
)

func (db *DB) AddContentRecord(ctx context.Context, record *models.ContentRecord) error {
	query := `
		INSERT INTO job_content (
			id, job_id, content_type, url, thumbnail, duration,
			segment_index, segment_text, search_query
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		record.ID, record.JobID, record.ContentType, record.URL,
		record.Thumbnail, record.Duration, record.SegmentIndex,
		record.SegmentText, record.SearchQuery,
	).Scan(&record.CreatedAt)
}

// GetJobContent returns all content for a job ordered by creation time,
// which is the order segments were processed in. typeFilter narrows the
// result to one content type; empty returns everything.
func (db *DB) GetJobContent(ctx context.Context, jobID uuid.UUID, typeFilter string) ([]models.ContentRecord, error) {
	query := `
		SELECT
			id, job_id, content_type, url, thumbnail, duration,
			segment_index, segment_text, search_query, created_at
		FROM job_content
		WHERE job_id = $1
	`
	args := []interface{}{jobID}
	if typeFilter != "" {
		query += ` AND content_type = $2`
		args = append(args, typeFilter)
	}
	query += ` ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job content: %w", err)
	}
	defer rows.Close()

	var records []models.ContentRecord
	for rows.Next() {
		var record models.ContentRecord
		err := rows.Scan(
			&record.ID, &record.JobID, &record.ContentType, &record.URL,
			&record.Thumbnail, &record.Duration, &record.SegmentIndex,
			&record.SegmentText, &record.SearchQuery, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (db *DB) GetContentRecord(ctx context.Context, id uuid.UUID) (*models.ContentRecord, error) {
	query := `
		SELECT
			id, job_id, content_type, url, thumbnail, duration,
			segment_index, segment_text, search_query, created_at
		FROM job_content
		WHERE id = $1
	`

	record := &models.ContentRecord{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.JobID, &record.ContentType, &record.URL,
		&record.Thumbnail, &record.Duration, &record.SegmentIndex,
		&record.SegmentText, &record.SearchQuery, &record.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("content record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content record: %w", err)
	}

	return record, nil
}

// UpdateContentRecord replaces the media fields of an existing record in
// place. Used by regeneration so segment ordering is untouched.
func (db *DB) UpdateContentRecord(ctx context.Context, id uuid.UUID, url string, thumbnail *string, duration float64) error {
	query := `
		UPDATE job_content
		SET url = $1, thumbnail = $2, duration = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, url, thumbnail, duration, id)
	return err
}
