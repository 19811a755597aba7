package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// OpenAI (search query generation + AI image provider)
	OpenAIKey string

	// Gemini (AI image provider)
	GeminiKey string

	// Stock media providers
	PexelsKey  string
	PixabayKey string
	SerpAPIKey string

	// Pacing defaults
	SpeakingRate       float64 // Words per minute
	MinSegmentDuration float64 // Floor for computed segment durations, seconds
	MinVideoDuration   float64
	MinImageDuration   float64
	VideosPerMinute    float64
	ImagesPerMinute    float64

	// Provider retry behavior
	MaxSearchRetries int
	BaseRetryDelay   time.Duration

	// Image-to-video shortfall recovery thresholds
	RecoveryTolerance      float64 // Trigger when |actual-target| exceeds this many seconds
	RecoveryShortfallRatio float64 // ...and actual < ratio * target
	RecoveryMaxActual      float64 // ...and actual is below this many seconds

	// Image generation rate limiting
	ImageGenRateLimit  int
	ImageGenRateWindow time.Duration

	// Paths
	TempDir   string // Per-run session directories are created under here
	OutputDir string // Permanent home for concatenated videos

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "clipforge-media"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		PexelsKey:             getEnv("PEXELS_API_KEY", ""),
		PixabayKey:            getEnv("PIXABAY_API_KEY", ""),
		SerpAPIKey:            getEnv("SERPAPI_API_KEY", ""),

		SpeakingRate:       getEnvFloat("SPEAKING_RATE_WPM", 120),
		MinSegmentDuration: getEnvFloat("MIN_SEGMENT_DURATION", 2.0),
		MinVideoDuration:   getEnvFloat("MIN_VIDEO_DURATION", 3.0),
		MinImageDuration:   getEnvFloat("MIN_IMAGE_DURATION", 2.0),
		VideosPerMinute:    getEnvFloat("VIDEOS_PER_MINUTE", 10),
		ImagesPerMinute:    getEnvFloat("IMAGES_PER_MINUTE", 10),

		MaxSearchRetries: getEnvInt("MAX_SEARCH_RETRIES", 3),
		BaseRetryDelay:   time.Duration(getEnvInt("BASE_RETRY_DELAY_MS", 2000)) * time.Millisecond,

		RecoveryTolerance:      getEnvFloat("RECOVERY_TOLERANCE_SEC", 0.5),
		RecoveryShortfallRatio: getEnvFloat("RECOVERY_SHORTFALL_RATIO", 0.8),
		RecoveryMaxActual:      getEnvFloat("RECOVERY_MAX_ACTUAL_SEC", 2.0),

		ImageGenRateLimit:  getEnvInt("IMAGE_GEN_RATE_LIMIT", 5),
		ImageGenRateWindow: time.Duration(getEnvInt("IMAGE_GEN_RATE_WINDOW_SEC", 60)) * time.Second,

		TempDir:   getEnv("TEMP_DIR", "temp"),
		OutputDir: getEnv("OUTPUT_DIR", "temp/concatenated"),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 3),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	// Pexels is the default stock provider; without it every search falls over
	if cfg.PexelsKey == "" {
		return nil, fmt.Errorf("PEXELS_API_KEY is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if cfg.SpeakingRate <= 0 {
		return nil, fmt.Errorf("SPEAKING_RATE_WPM must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
