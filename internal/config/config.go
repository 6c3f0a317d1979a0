package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	FirebaseProjectID       string
	FirebaseBucketName      string
	FirebaseCredentialsPath string
	FirebaseCredentialsJSON string // Raw JSON string, preferred on hosted platforms
	FirestoreCollection     string
	BoundaryPath            string        // Optional GeoJSON boundary override; embedded region used otherwise
	SampleCacheTTL          time.Duration // TTL of the cached "latest contribution" query
	SampleCacheCleanup      time.Duration
	AllowedOrigins          []string
	APIKeys                 []string // Optional; empty list leaves the API public
	RateLimitRPS            float64
	RateLimitBurst          int
	MaxUploadBytes          int64 // Caps multipart photo uploads
}

// Load reads configuration from environment variables and .env file.
// It loads the .env file if present, then populates the Config struct.
// Returns an error if required configuration is missing.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseBucketName:      getEnv("FIREBASE_BUCKET_NAME", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "firebase-service-account.json"),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		FirestoreCollection:     getEnv("FIRESTORE_COLLECTION", "contributions"),
		BoundaryPath:            getEnv("BOUNDARY_GEOJSON_PATH", ""),
		SampleCacheTTL:          getDurationEnv("SAMPLE_CACHE_TTL", 1*time.Minute),
		SampleCacheCleanup:      getDurationEnv("SAMPLE_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		AllowedOrigins:          getList("ALLOWED_ORIGINS", []string{"*"}),
		APIKeys:                 getList("API_KEYS", []string{}),
		RateLimitRPS:            getFloatEnv("RATE_LIMIT_RPS", 10),
		RateLimitBurst:          getIntEnv("RATE_LIMIT_BURST", 20),
		MaxUploadBytes:          int64(getIntEnv("MAX_UPLOAD_BYTES", 10<<20)),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	if c.FirebaseBucketName == "" {
		return fmt.Errorf("FIREBASE_BUCKET_NAME is required")
	}
	if c.FirebaseCredentialsJSON == "" && c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("either FIREBASE_CREDENTIALS_JSON or FIREBASE_CREDENTIALS_PATH must be set")
	}
	if c.FirestoreCollection == "" {
		return fmt.Errorf("FIRESTORE_COLLECTION is required")
	}
	if c.SampleCacheTTL <= 0 {
		return fmt.Errorf("SAMPLE_CACHE_TTL must be positive")
	}
	if c.SampleCacheCleanup <= 0 {
		return fmt.Errorf("SAMPLE_CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// Retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Retrieves a duration from environment variable or returns a default value.
// It supports both time.Duration format (e.g., "10m", "12h") and integer minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// Retrieves a comma-separated list from environment variable or returns a default value.
func getList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Retrieves an integer from environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Retrieves a float from environment variable or returns a default value.
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
