package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/clipforge/internal/api"
	"github.com/bobarin/clipforge/internal/config"
	"github.com/bobarin/clipforge/internal/db"
	"github.com/bobarin/clipforge/internal/providers"
	"github.com/bobarin/clipforge/internal/queue"
	"github.com/bobarin/clipforge/internal/services"
	"github.com/bobarin/clipforge/internal/storage"
	"github.com/bobarin/clipforge/internal/worker"
)

func main() {
	log.Println("Starting Clipforge API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, cfg.OutputDir)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Initialize services
		openaiSvc := services.NewOpenAIService(cfg.OpenAIKey)

		var geminiSvc *services.GeminiService
		if cfg.GeminiKey != "" {
			geminiSvc = services.NewGeminiService(cfg.GeminiKey, "")
			log.Println("Gemini image generation enabled")
		}

		ffmpegSvc := services.NewFFmpegService(cfg.TempDir, services.RecoveryThresholds{
			Tolerance:      cfg.RecoveryTolerance,
			ShortfallRatio: cfg.RecoveryShortfallRatio,
			MaxActual:      cfg.RecoveryMaxActual,
		})

		downloader := services.NewDownloader()

		// Stock media providers. Pexels is always present; the default
		// image provider prefers SerpAPI's Google results when a key is
		// configured.
		defaultImage := "pexels"
		if cfg.SerpAPIKey != "" {
			defaultImage = "google"
		}

		registry := providers.NewRegistry("pexels", defaultImage)

		pexels := providers.NewPexels(cfg.PexelsKey)
		registry.RegisterVideo(pexels)
		registry.RegisterImage(pexels)

		if cfg.PixabayKey != "" {
			pixabay := providers.NewPixabay(cfg.PixabayKey)
			registry.RegisterVideo(pixabay)
			registry.RegisterImage(pixabay)
			log.Println("Pixabay provider enabled")
		}

		if cfg.SerpAPIKey != "" {
			registry.RegisterImage(providers.NewSerpAPI(cfg.SerpAPIKey))
			log.Println("SerpAPI image provider enabled")
		}

		resolver := providers.NewResolver(registry, providers.NewURLDedup(), cfg.MaxSearchRetries, cfg.BaseRetryDelay)
		imageGen := providers.NewRateLimiter(cfg.ImageGenRateLimit, cfg.ImageGenRateWindow)

		// Create worker
		w := worker.New(database, q, stor, openaiSvc, geminiSvc, ffmpegSvc, downloader, resolver, imageGen, worker.Config{
			SpeakingRate:       cfg.SpeakingRate,
			MinSegmentDuration: cfg.MinSegmentDuration,
			MinVideoDuration:   cfg.MinVideoDuration,
			MinImageDuration:   cfg.MinImageDuration,
			VideosPerMinute:    cfg.VideosPerMinute,
			ImagesPerMinute:    cfg.ImagesPerMinute,
			TempDir:            cfg.TempDir,
			OutputDir:          cfg.OutputDir,
		})

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
