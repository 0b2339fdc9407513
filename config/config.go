package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

const (
	defaultWorkerQueueSize  = 200
	defaultNumWorkers       = 4
	defaultThumbnailMaxSize = 300

	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// MaxImageBytes is the hard ceiling for accepted image payloads, enforced
// both for direct uploads and remote URL fetches.
const MaxImageBytes = 2 * 1024 * 1024

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type Config struct {
	// server
	Port          string
	PublicBaseURL string

	// metadata store
	DatabasePath string

	// object store
	StorageBackend   string // "local" or "s3"
	MediaStoragePath string // root directory for the local backend
	S3               S3Config

	// tag generation
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// optional basic auth gate; active only when both values are set
	BasicAuthUser     string
	BasicAuthPassword string

	// logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// background image processing
	ThumbnailMaxSize int
	WorkerQueueSize  int
	NumWorkers       int

	CORSAllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	backend := strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageBackendLocal))
	if backend != StorageBackendLocal && backend != StorageBackendS3 {
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND '%s' (expected 'local' or 's3')", backend)
	}

	port := getEnvOrDefault("PORT", "8080")

	cfg := Config{
		Port:             port,
		PublicBaseURL:    strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		DatabasePath:     getEnvOrDefault("DATABASE_PATH", "images.db"),
		StorageBackend:   backend,
		MediaStoragePath: absMediaStorage,
		S3: S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          getEnvOrDefault("S3_REGION", "us-east-1"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		GeminiBaseURL:     getEnvOrDefault("GEMINI_BASE_URL", defaultGeminiBaseURL),
		BasicAuthUser:     os.Getenv("BASIC_AUTH_USER"),
		BasicAuthPassword: os.Getenv("BASIC_AUTH_PASSWORD"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogPath:           os.Getenv("LOG_PATH"),
		LogMaxSizeMB:      getEnvIntOrDefault("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:     getEnvIntOrDefault("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:     getEnvIntOrDefault("LOG_MAX_AGE_DAYS", 7),
		ThumbnailMaxSize:  getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize),
		WorkerQueueSize:   getEnvIntOrDefault("WORKER_QUEUE_SIZE", defaultWorkerQueueSize),
		NumWorkers:        getEnvIntOrDefault("NUM_WORKERS", defaultNumWorkers),
	}

	origins := getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, trimmed)
		}
	}

	if backend == StorageBackendS3 && cfg.S3.Bucket == "" {
		return Config{}, fmt.Errorf("STORAGE_BACKEND is 's3' but S3_BUCKET is not set")
	}

	return cfg, nil
}

// BasicAuthEnabled reports whether the basic auth gate should be enforced.
func (c Config) BasicAuthEnabled() bool {
	return c.BasicAuthUser != "" && c.BasicAuthPassword != ""
}
