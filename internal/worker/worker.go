package worker

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/clipforge/internal/db"
	"github.com/bobarin/clipforge/internal/models"
	"github.com/bobarin/clipforge/internal/pacing"
	"github.com/bobarin/clipforge/internal/providers"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/bobarin/clipforge/internal/services"
	"github.com/bobarin/clipforge/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config carries the pacing and processing tunables the worker needs.
type Config struct {
	SpeakingRate       float64
	MinSegmentDuration float64
	MinVideoDuration   float64
	MinImageDuration   float64
	VideosPerMinute    float64
	ImagesPerMinute    float64
	TempDir            string
	OutputDir          string
}

type Worker struct {
	db         *db.DB
	queue      *queue.Queue
	storage    *storage.Storage
	openai     *services.OpenAIService
	gemini     *services.GeminiService // Optional: nil when GEMINI_API_KEY is not set
	ffmpeg     *services.FFmpegService
	downloader *services.Downloader
	resolver   *providers.Resolver
	imageGen   *providers.RateLimiter // Shared budget across AI image providers
	registry   *RunRegistry
	cfg        Config
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	openaiSvc *services.OpenAIService,
	geminiSvc *services.GeminiService,
	ffmpegSvc *services.FFmpegService,
	downloader *services.Downloader,
	resolver *providers.Resolver,
	imageGen *providers.RateLimiter,
	cfg Config,
) *Worker {
	return &Worker{
		db:         database,
		queue:      q,
		storage:    stor,
		openai:     openaiSvc,
		gemini:     geminiSvc,
		ffmpeg:     ffmpegSvc,
		downloader: downloader,
		resolver:   resolver,
		imageGen:   imageGen,
		registry:   NewRunRegistry(),
		cfg:        cfg,
	}
}

// Start begins processing tasks from all queues
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueProcessScript, w.handleProcessScript)
		go w.processQueue(ctx, queue.QueueConcatenate, w.handleConcatenate)
		go w.processQueue(ctx, queue.QueueRegenerate, w.handleRegenerate)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Task) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			task, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if task == nil {
				continue // No task available, retry
			}

			log.Printf("Processing task %s (type: %s, job: %s)", task.ID, task.Type, task.JobID)

			if err := handler(ctx, task); err != nil {
				log.Printf("Task %s failed: %v", task.ID, err)
			} else {
				log.Printf("Task %s completed", task.ID)
			}
		}
	}
}

// handleProcessScript runs a full resolution pass for a job: derive the
// timing plan, split the script, generate search queries concurrently,
// then fill each segment with media in order.
func (w *Worker) handleProcessScript(ctx context.Context, task *queue.Task) error {
	generation := w.registry.Begin(task.JobID)
	defer w.registry.Finish(task.JobID, generation)

	job, err := w.db.GetJob(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	// Fresh run: previously used URLs are fair game again
	w.resolver.Dedup().Reset()

	sessionDir := filepath.Join(w.cfg.TempDir, uuid.New().String())
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		w.db.UpdateJobError(ctx, job.ID, fmt.Sprintf("failed to create session dir: %v", err))
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	defer os.RemoveAll(sessionDir)

	speakingRate := job.SpeakingRate
	if speakingRate <= 0 {
		speakingRate = w.cfg.SpeakingRate
	}

	words := pacing.Tokenize(job.Script)
	if len(words) == 0 {
		w.db.UpdateJobError(ctx, job.ID, "script is empty")
		return fmt.Errorf("script is empty")
	}

	plan := pacing.Compute(len(words), speakingRate, w.contentPerMinute(job), w.cfg.MinSegmentDuration)
	segments := pacing.Split(job.Script, plan, speakingRate, w.cfg.MinSegmentDuration)

	log.Printf("Job %s: %d words, %.1fs total, %d segments of ~%.1fs",
		job.ID, len(words), plan.TotalDuration, len(segments), plan.SegmentDuration)

	if err := w.db.UpdateSegmentCount(ctx, job.ID, len(segments)); err != nil {
		return fmt.Errorf("failed to update segment count: %w", err)
	}

	queries := w.generateQueries(ctx, segments)

	processed := 0
	for i, segment := range segments {
		if w.registry.Superseded(task.JobID, generation) {
			log.Printf("Job %s: run superseded at segment %d, abandoning", job.ID, i)
			return nil
		}

		contentType := pickContentType(job.Mode, i, job.VideoRatio, rand.Float64())

		record, err := w.processSegment(ctx, job, sessionDir, segment, queries[i], contentType)
		if !segmentSucceeded(record, err) {
			// Segment-local failure or empty section: the timeline
			// continues without it and the counters stay put
			if err != nil {
				log.Printf("Job %s: segment %d failed, skipping: %v", job.ID, i, err)
			} else {
				log.Printf("Job %s: segment %d has no content (empty section)", job.ID, i)
			}
			continue
		}

		if w.registry.Superseded(task.JobID, generation) {
			log.Printf("Job %s: run superseded before recording segment %d, abandoning", job.ID, i)
			return nil
		}

		if err := w.db.AddContentRecord(ctx, record); err != nil {
			log.Printf("Job %s: failed to record segment %d: %v", job.ID, i, err)
			continue
		}

		processed++
		w.db.UpdateProcessedSegmentCount(ctx, job.ID, processed)
		w.db.UpdateVideoSegmentsCompleted(ctx, job.ID, processed)
	}

	if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.Printf("Job %s: resolved %d of %d segments", job.ID, processed, len(segments))
	return nil
}

// generateQueries fans out one LLM call per segment and collects the
// results in segment order. A failed call falls back to the segment's
// leading words so resolution never blocks on the model.
func (w *Worker) generateQueries(ctx context.Context, segments []pacing.Segment) []string {
	queries := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	for i := range segments {
		i := i
		g.Go(func() error {
			query, err := w.openai.GenerateSearchQuery(gctx, segments[i].Text)
			if err != nil {
				log.Printf("Query generation failed for segment %d, using leading words: %v", i, err)
				query = firstWords(segments[i].Text, 4)
			}
			queries[i] = query
			return nil
		})
	}
	g.Wait()

	return queries
}

// processSegment resolves and stores media for one segment. A nil record
// with nil error is an empty section: nothing usable was found but the
// job carries on.
func (w *Worker) processSegment(ctx context.Context, job *models.Job, sessionDir string, segment pacing.Segment, query string, contentType models.ContentType) (*models.ContentRecord, error) {
	switch contentType {
	case models.ContentTypeVideo:
		return w.resolveVideoSegment(ctx, job, sessionDir, segment, query)
	case models.ContentTypeAIImage:
		return w.generateImageSegment(ctx, job, sessionDir, segment, query)
	default:
		return w.resolveImageSegment(ctx, job, sessionDir, segment, query)
	}
}

func (w *Worker) resolveVideoSegment(ctx context.Context, job *models.Job, sessionDir string, segment pacing.Segment, query string) (*models.ContentRecord, error) {
	candidate, err := w.resolver.ResolveVideo(ctx, job.Provider, query)
	if err != nil {
		return nil, fmt.Errorf("video search failed: %w", err)
	}
	if candidate == nil {
		return nil, nil
	}

	localPath := filepath.Join(sessionDir, fmt.Sprintf("segment_%d.mp4", segment.Index))
	if _, err := w.downloader.Download(ctx, candidate.URL, localPath); err != nil {
		return nil, fmt.Errorf("video download failed: %w", err)
	}

	storagePath := w.storage.GenerateStoragePath(job.ID, fmt.Sprintf("segment_%d.mp4", segment.Index))
	if err := w.storage.UploadFile(ctx, storagePath, localPath, "video/mp4"); err != nil {
		return nil, fmt.Errorf("video upload failed: %w", err)
	}

	return newContentRecord(job, segment, models.ContentTypeVideo,
		w.storage.GetPublicURL(storagePath), candidate.Thumbnail, query, w.cfg.MinVideoDuration), nil
}

func (w *Worker) resolveImageSegment(ctx context.Context, job *models.Job, sessionDir string, segment pacing.Segment, query string) (*models.ContentRecord, error) {
	candidate, err := w.resolver.ResolveImage(ctx, job.Provider, query)
	if err != nil {
		return nil, fmt.Errorf("image search failed: %w", err)
	}
	if candidate == nil {
		return nil, nil
	}

	localPath := filepath.Join(sessionDir, fmt.Sprintf("segment_%d.jpg", segment.Index))
	contentTypeHeader, err := w.downloader.Download(ctx, candidate.URL, localPath)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}

	if services.IsSVG(contentTypeHeader, candidate.URL) {
		rasterPath := filepath.Join(sessionDir, fmt.Sprintf("segment_%d.png", segment.Index))
		if err := w.ffmpeg.ConvertImage(ctx, localPath, rasterPath); err != nil {
			return nil, fmt.Errorf("svg rasterization failed: %w", err)
		}
		localPath = rasterPath
	}

	storagePath := w.storage.GenerateStoragePath(job.ID, filepath.Base(localPath))
	if err := w.storage.UploadFile(ctx, storagePath, localPath, "image/jpeg"); err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}

	return newContentRecord(job, segment, models.ContentTypeImage,
		w.storage.GetPublicURL(storagePath), candidate.Thumbnail, query, w.cfg.MinImageDuration), nil
}

func (w *Worker) generateImageSegment(ctx context.Context, job *models.Job, sessionDir string, segment pacing.Segment, query string) (*models.ContentRecord, error) {
	if err := w.imageGen.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	imageData, err := w.generateImage(ctx, job.Provider, query)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	localPath := filepath.Join(sessionDir, fmt.Sprintf("segment_%d.png", segment.Index))
	if err := os.WriteFile(localPath, imageData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write generated image: %w", err)
	}

	storagePath := w.storage.GenerateStoragePath(job.ID, fmt.Sprintf("segment_%d.png", segment.Index))
	if err := w.storage.Upload(ctx, storagePath, imageData, "image/png"); err != nil {
		return nil, fmt.Errorf("generated image upload failed: %w", err)
	}

	// A generated image has no provider preview; it serves as its own
	// thumbnail.
	publicURL := w.storage.GetPublicURL(storagePath)
	return newContentRecord(job, segment, models.ContentTypeAIImage,
		publicURL, publicURL, query, w.cfg.MinImageDuration), nil
}

// generateImage dispatches to an AI image provider by name. Unknown
// providers get the OpenAI default, stated in the log rather than
// swallowed.
func (w *Worker) generateImage(ctx context.Context, provider, prompt string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "google", "gemini":
		if w.gemini != nil {
			return w.gemini.GenerateImage(ctx, prompt)
		}
		log.Printf("[Worker] gemini not configured, substituting openai for image generation")
	case "openai", "openai-gpt-image", "":
		// Default provider
	default:
		log.Printf("[Worker] unsupported AI image provider %q, substituting openai", provider)
	}
	return w.openai.GenerateImage(ctx, prompt)
}

// contentPerMinute derives the density for the duration model. Mixed
// mode draws from both pools, so the budgets add.
func (w *Worker) contentPerMinute(job *models.Job) float64 {
	videos := job.VideosPerMinute
	if videos <= 0 {
		videos = w.cfg.VideosPerMinute
	}
	images := job.ImagesPerMinute
	if images <= 0 {
		images = w.cfg.ImagesPerMinute
	}

	switch job.Mode {
	case models.JobModeVideos:
		return videos
	case models.JobModeMixed:
		return videos + images
	default:
		return images
	}
}

// pickContentType decides what fills a segment. Mixed mode guarantees a
// video every third segment and otherwise rolls against the configured
// ratio; roll is the random draw in [0,1).
func pickContentType(mode models.JobMode, index int, videoRatio, roll float64) models.ContentType {
	switch mode {
	case models.JobModeVideos:
		return models.ContentTypeVideo
	case models.JobModeImages:
		return models.ContentTypeImage
	case models.JobModeAIImages:
		return models.ContentTypeAIImage
	case models.JobModeMixed:
		if index%3 == 0 || videoRatio > roll {
			return models.ContentTypeVideo
		}
		return models.ContentTypeImage
	}
	return models.ContentTypeVideo
}

// segmentSucceeded reports whether a segment run produced stored media.
// Only successful segments advance the job's progress counters.
func segmentSucceeded(record *models.ContentRecord, err error) bool {
	return err == nil && record != nil
}

// newContentRecord builds the stored record for a resolved segment,
// flooring the duration at the configured minimum for its media type.
func newContentRecord(job *models.Job, segment pacing.Segment, contentType models.ContentType, url, thumbnail, query string, minDuration float64) *models.ContentRecord {
	duration := segment.Duration
	if duration < minDuration {
		duration = minDuration
	}

	return &models.ContentRecord{
		ID:           uuid.New(),
		JobID:        job.ID,
		ContentType:  contentType,
		URL:          url,
		Thumbnail:    optionalString(thumbnail),
		Duration:     duration,
		SegmentIndex: segment.Index,
		SegmentText:  optionalString(segment.Text),
		SearchQuery:  optionalString(query),
	}
}

// firstWords returns up to n leading words of text.
func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
