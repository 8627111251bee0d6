// Package config provides configuration management for EventForge.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Google Custom Search settings
	GoogleAPIKey  string
	GoogleCSEID   string
	SearchResults int

	// OpenAI settings
	OpenAIAPIKey string
	OpenAIModel  string

	// Sports data settings
	OddsAPIKey string

	// Object storage settings
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSBucketName      string

	// MongoDB settings
	MongoURI        string
	DatabaseName    string
	EventCollection string

	// Pipeline settings
	RetryCount         int
	RetryDelay         time.Duration
	Concurrency        int
	AdapterTimeout     time.Duration
	MaxImageSearches   int
	MaxDraftsPerResult int

	Debug bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Google Custom Search
		GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		GoogleCSEID:   getEnv("GOOGLE_CSE_ID", ""),
		SearchResults: getEnvInt("RESULTS_PER_REQUEST", 10),

		// OpenAI
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// Sports data
		OddsAPIKey: getEnv("ODDS_API_KEY", ""),

		// Object storage
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSBucketName:      getEnv("AWS_BUCKET_NAME", "eventforge-media"),

		// MongoDB
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName:    getEnv("DATABASE_NAME", "eventforge"),
		EventCollection: getEnv("EVENT_COLLECTION", "events"),

		// Pipeline
		RetryCount:         getEnvInt("DEFAULT_RETRY_COUNT", 3),
		RetryDelay:         getEnvDuration("DEFAULT_RETRY_DELAY", 2*time.Second),
		Concurrency:        getEnvInt("PIPELINE_CONCURRENCY", 4),
		AdapterTimeout:     getEnvDuration("ADAPTER_TIMEOUT", 30*time.Second),
		MaxImageSearches:   getEnvInt("MAX_IMAGE_SEARCHES_PER_RUN", 200),
		MaxDraftsPerResult: getEnvInt("MAX_DRAFTS_PER_RESULT", 3),

		Debug: getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.GoogleAPIKey == "" || c.GoogleCSEID == "" {
		log.Warn().Msg("Google search credentials not set, search evidence will be disabled")
	}
	if c.OddsAPIKey == "" {
		log.Warn().Msg("ODDS_API_KEY not set, sports evidence will be disabled")
	}
	if c.AWSAccessKeyID == "" || c.AWSSecretAccessKey == "" {
		log.Warn().Msg("AWS credentials not set, media resolution will be disabled")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are treated as seconds, matching the legacy
		// DEFAULT_RETRY_DELAY=2 style.
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
