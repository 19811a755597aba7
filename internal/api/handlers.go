package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobarin/clipforge/internal/db"
	"github.com/bobarin/clipforge/internal/models"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	db        *db.DB
	queue     *queue.Queue
	outputDir string
}

func NewHandler(database *db.DB, q *queue.Queue, outputDir string) *Handler {
	return &Handler{
		db:        database,
		queue:     q,
		outputDir: outputDir,
	}
}

// CreateJob handles POST /v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Script) == "" {
		respondError(w, http.StatusBadRequest, "Script is required")
		return
	}

	// Defaults
	mode := models.JobModeVideos
	if req.Mode != nil {
		switch *req.Mode {
		case models.JobModeVideos, models.JobModeImages, models.JobModeMixed, models.JobModeAIImages:
			mode = *req.Mode
		default:
			respondError(w, http.StatusBadRequest, "Invalid mode. Allowed: videos, images, mixed, ai_images")
			return
		}
	}

	provider := "pexels"
	if req.Provider != nil && *req.Provider != "" {
		provider = *req.Provider
	}

	job := &models.Job{
		ID:       uuid.New(),
		Script:   req.Script,
		Mode:     mode,
		Provider: provider,
		Status:   models.JobStatusPending,
	}
	if req.SpeakingRate != nil && *req.SpeakingRate > 0 {
		job.SpeakingRate = *req.SpeakingRate
	}
	if req.VideosPerMinute != nil && *req.VideosPerMinute > 0 {
		job.VideosPerMinute = *req.VideosPerMinute
	}
	if req.ImagesPerMinute != nil && *req.ImagesPerMinute > 0 {
		job.ImagesPerMinute = *req.ImagesPerMinute
	}
	if req.VideoRatio != nil && *req.VideoRatio >= 0 && *req.VideoRatio <= 1 {
		job.VideoRatio = *req.VideoRatio
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueProcessScript(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	typeFilter := r.URL.Query().Get("type")
	if typeFilter != "" && !models.ContentType(typeFilter).Valid() {
		respondError(w, http.StatusBadRequest, "Invalid type filter. Allowed: video, image, ai_image")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	content, err := h.db.GetJobContent(r.Context(), jobID, typeFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get job content")
		return
	}

	respondJSON(w, http.StatusOK, models.JobStatusResponse{
		Job:     *job,
		Content: content,
	})
}

// RestartJob handles POST /v1/jobs/{id}/restart. Progress and content
// are wiped and the script is queued again from the start; a run still
// in flight notices it has been superseded and stops writing.
func (h *Handler) RestartJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if _, err := h.db.GetJob(r.Context(), jobID); err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if err := h.db.ResetJobProgress(r.Context(), jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to reset job")
		return
	}

	if err := h.queue.EnqueueProcessScript(r.Context(), jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusOK, models.TaskResponse{
		TaskID:  jobID,
		Status:  "pending",
		Message: "Job restarted",
	})
}

// RegenerateContent handles POST /v1/jobs/{id}/regenerate
func (h *Handler) RegenerateContent(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	var req models.RegenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ContentID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "content_id is required")
		return
	}

	record, err := h.db.GetContentRecord(r.Context(), req.ContentID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Content not found")
		return
	}
	if record.JobID != jobID {
		respondError(w, http.StatusBadRequest, "Content does not belong to this job")
		return
	}

	query := ""
	if req.Query != nil {
		query = *req.Query
	}

	if err := h.queue.EnqueueRegenerate(r.Context(), jobID, req.ContentID, query); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue regeneration")
		return
	}

	respondJSON(w, http.StatusAccepted, models.TaskResponse{
		TaskID:  req.ContentID,
		Status:  "pending",
		Message: "Content regeneration queued",
	})
}

// StartConcatenation handles POST /v1/jobs/{id}/concatenate.
// Idempotent against the current state: an in-flight run is reported
// rather than doubled, and a finished video whose file is still on
// disk is returned directly.
func (h *Handler) StartConcatenation(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	switch job.ConcatenatedVideoStatus {
	case models.ConcatStatusProcessing, models.ConcatStatusPending:
		respondJSON(w, http.StatusOK, models.TaskResponse{
			TaskID:  jobID,
			Status:  job.ConcatenatedVideoStatus.String(),
			Message: "Concatenation already in progress",
		})
		return

	case models.ConcatStatusCompleted:
		if job.VideoURL != nil {
			if _, err := os.Stat(*job.VideoURL); err == nil {
				url := h.downloadURL(jobID, filepath.Base(*job.VideoURL))
				respondJSON(w, http.StatusOK, models.TaskResponse{
					TaskID:   jobID,
					Status:   "completed",
					Message:  "Video already concatenated",
					VideoURL: &url,
				})
				return
			}
		}
		// Output went missing, fall through and rebuild
	}

	if err := h.db.UpdateConcatenatedVideoStatus(r.Context(), jobID, models.ConcatStatusPending); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	if err := h.queue.EnqueueConcatenate(r.Context(), jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue concatenation")
		return
	}

	respondJSON(w, http.StatusAccepted, models.TaskResponse{
		TaskID:  jobID,
		Status:  "pending",
		Message: "Concatenation queued",
	})
}

// GetConcatenationStatus handles GET /v1/jobs/{id}/concatenate/status
func (h *Handler) GetConcatenationStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	response := models.ConcatenationStatusResponse{
		JobID:                  job.ID,
		VideoSegmentsCompleted: job.VideoSegmentsCompleted,
		TotalSegments:          job.SegmentCount,
		ProcessedSegments:      job.ProcessedSegmentCount,
		SegmentsProgress:       fmt.Sprintf("%d/%d", job.ProcessedSegmentCount, job.SegmentCount),
		ConcatenationStatus:    job.ConcatenatedVideoStatus.String(),
	}

	if job.ConcatenatedVideoStatus == models.ConcatStatusCompleted && job.VideoURL != nil {
		exists := false
		if _, err := os.Stat(*job.VideoURL); err == nil {
			exists = true
		}
		url := h.downloadURL(jobID, filepath.Base(*job.VideoURL))
		response.VideoURL = &url
		response.VideoExists = &exists
	}

	respondJSON(w, http.StatusOK, response)
}

// DownloadVideo handles GET /v1/download/video/{jobId}/{filename} and
// serves a finished video off the local output directory.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	filename := chi.URLParam(r, "filename")
	// Only files this service wrote are servable, which also rules out
	// path traversal.
	if filename != filepath.Base(filename) || !strings.HasPrefix(filename, fmt.Sprintf("job_%s_", jobID)) || !strings.HasSuffix(filename, ".mp4") {
		respondError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	path := filepath.Join(h.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

func (h *Handler) downloadURL(jobID uuid.UUID, filename string) string {
	return fmt.Sprintf("/v1/download/video/%s/%s", jobID, filename)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
