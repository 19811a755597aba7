package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums

// JobStatus uses the numeric codes stored in the jobs table.
type JobStatus int

const (
	JobStatusPending    JobStatus = 1
	JobStatusProcessing JobStatus = 2
	JobStatusCompleted  JobStatus = 3
	JobStatusFailed     JobStatus = 4
)

// ConcatStatus tracks the concatenated video separately from the job itself.
type ConcatStatus int

const (
	ConcatStatusNotStarted ConcatStatus = 0
	ConcatStatusPending    ConcatStatus = 1
	ConcatStatusProcessing ConcatStatus = 2
	ConcatStatusCompleted  ConcatStatus = 3
	ConcatStatusFailed     ConcatStatus = 4
)

func (s ConcatStatus) String() string {
	switch s {
	case ConcatStatusNotStarted:
		return "not_started"
	case ConcatStatusPending:
		return "pending"
	case ConcatStatusProcessing:
		return "processing"
	case ConcatStatusCompleted:
		return "completed"
	case ConcatStatusFailed:
		return "failed"
	}
	return "unknown"
}

// JobMode selects what kind of content segments are filled with.
type JobMode string

const (
	JobModeVideos   JobMode = "videos"
	JobModeImages   JobMode = "images"
	JobModeMixed    JobMode = "mixed"
	JobModeAIImages JobMode = "ai_images"
)

type ContentType string

const (
	ContentTypeVideo   ContentType = "video"
	ContentTypeImage   ContentType = "image"
	ContentTypeAIImage ContentType = "ai_image"
)

// Valid reports whether the content type is one the pipeline produces.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeVideo, ContentTypeImage, ContentTypeAIImage:
		return true
	}
	return false
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Job struct {
	ID                      uuid.UUID    `json:"id"`
	Script                  string       `json:"script"`
	Mode                    JobMode      `json:"mode"`
	Provider                string       `json:"provider"`
	SpeakingRate            float64      `json:"speaking_rate"`
	VideosPerMinute         float64      `json:"videos_per_minute"`
	ImagesPerMinute         float64      `json:"images_per_minute"`
	VideoRatio              float64      `json:"video_ratio"`
	Status                  JobStatus    `json:"status"`
	ErrorMessage            *string      `json:"error_message,omitempty"`
	SegmentCount            int          `json:"segment_count"`
	ProcessedSegmentCount   int          `json:"processed_segment_count"`
	VideoSegmentsCompleted  int          `json:"video_segments_completed"`
	ConcatenatedVideoStatus ConcatStatus `json:"concatenated_video_status"`
	VideoURL                *string      `json:"video_url,omitempty"`
	Metadata                JSONB        `json:"metadata,omitempty"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// ContentRecord is one resolved piece of media tied to a script segment.
// URL points at stored media; Thumbnail may be empty when the provider
// offered none.
type ContentRecord struct {
	ID           uuid.UUID   `json:"id"`
	JobID        uuid.UUID   `json:"job_id"`
	ContentType  ContentType `json:"content_type"`
	URL          string      `json:"url"`
	Thumbnail    *string     `json:"thumbnail,omitempty"`
	Duration     float64     `json:"duration"`
	SegmentIndex int         `json:"segment_index"`
	SegmentText  *string     `json:"segment_text,omitempty"`
	SearchQuery  *string     `json:"search_query,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DTOs for API requests and responses

type CreateJobRequest struct {
	Script          string   `json:"script"`
	Mode            *JobMode `json:"mode,omitempty"`             // Default: "videos"
	Provider        *string  `json:"provider,omitempty"`         // Default: "pexels"
	SpeakingRate    *float64 `json:"speaking_rate,omitempty"`    // Words per minute, default 120
	VideosPerMinute *float64 `json:"videos_per_minute,omitempty"`
	ImagesPerMinute *float64 `json:"images_per_minute,omitempty"`
	VideoRatio      *float64 `json:"video_ratio,omitempty"` // Mixed mode only, 0..1
}

type CreateJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type JobStatusResponse struct {
	Job     Job             `json:"job"`
	Content []ContentRecord `json:"content,omitempty"`
}

type RegenerateContentRequest struct {
	ContentID uuid.UUID `json:"content_id"`
	Query     *string   `json:"query,omitempty"` // Override search query; nil reuses the stored one
}

type ConcatenationStatusResponse struct {
	JobID                  uuid.UUID `json:"job_id"`
	VideoSegmentsCompleted int       `json:"videoSegmentsCompleted"`
	TotalSegments          int       `json:"totalSegments"`
	ProcessedSegments      int       `json:"processedSegments"`
	SegmentsProgress       string    `json:"segmentsProgress"`
	ConcatenationStatus    string    `json:"concatenationStatus"`
	VideoURL               *string   `json:"videoUrl,omitempty"`
	VideoExists            *bool     `json:"videoExists,omitempty"`
}

type TaskResponse struct {
	TaskID   uuid.UUID `json:"task_id"`
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	VideoURL *string   `json:"video_url,omitempty"`
}
