package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// PartialFailurePolicy decides what the initiator does when the storage
// backend refuses one file of a batch.
type PartialFailurePolicy string

const (
	// PartialContinue keeps going and reports mixed per-file results.
	PartialContinue PartialFailurePolicy = "continue"
	// PartialAbort stops at the first failure and marks the session error.
	PartialAbort PartialFailurePolicy = "abort"
)

type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	BasePrefix      string
	PresignTTL      time.Duration
}

type DispatchConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   uint64
	ServiceToken string
}

type Config struct {
	DBURL           string
	Port            string
	Environment     string
	JWTSecret       string
	CorsConfig      cors.Options
	Storage         StorageConfig
	Dispatch        DispatchConfig
	PartialFailures PartialFailurePolicy
	// SuggestedChunkBytes is returned to clients as the recommended upload
	// chunk size. Fixed operational constant, 256 KiB aligned.
	SuggestedChunkBytes int64
}

// Load reads .env (if present) and the environment into a Config. It is
// called once from main; nothing else holds configuration state.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DBURL:       getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		CorsConfig:  CorsConfig(),
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("RAW_BUCKET", ""),
			Region:          getEnv("STORAGE_REGION", "auto"),
			BasePrefix:      getEnv("STORAGE_BASE_PREFIX", "raw"),
			PresignTTL:      getDuration("STORAGE_PRESIGN_TTL", time.Hour),
		},
		Dispatch: DispatchConfig{
			BaseURL:      getEnv("DISPATCH_BASE_URL", ""),
			Timeout:      getDuration("DISPATCH_TIMEOUT", 10*time.Second),
			MaxRetries:   getUint("DISPATCH_MAX_RETRIES", 2),
			ServiceToken: getEnv("DISPATCH_SERVICE_TOKEN", ""),
		},
		PartialFailures:     partialFailurePolicy(getEnv("UPLOAD_PARTIAL_FAILURES", "continue")),
		SuggestedChunkBytes: 8 << 20,
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Println("Invalid duration for", key, "- using default")
	}
	return fallback
}

func getUint(key string, fallback uint64) uint64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
		log.Println("Invalid number for", key, "- using default")
	}
	return fallback
}

func partialFailurePolicy(v string) PartialFailurePolicy {
	if v == string(PartialAbort) {
		return PartialAbort
	}
	return PartialContinue
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
