package config

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config holds process-wide settings for the clipscan service: HTTP server
// options, the upstream comment feed endpoint, and the analysis parameters
// handed to the orchestrator for every run.
type Config struct {
	Port    string
	GinMode string

	// Logging
	LogLevel  string
	LogFormat string

	// Upstream comment feed
	CommentFeedURL      string
	CommentFeedClientID string
	CommentFeedQPS      float64 // sustained requests/sec allowed to the feed
	CommentFeedBurst    int
	HTTPTimeoutSeconds  int

	// Retry policy
	MaxRetries int // additional attempts after the first (spec default: 3)

	// Default analysis parameters (§6 Configuration)
	WindowSec         int
	ClipDurationSec   int
	MinGapSec         int
	ThresholdFactor   float64
	MaxHighlights     int
	MaxPages          int
	AnalysisTimeoutMs int
	ReactionDelaySec  int

	// CORS
	CORSAllowedOrigins string
}

var AppConfig *Config

func LoadConfig() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		CommentFeedURL:      getEnvOrDefault("COMMENT_FEED_URL", "https://gql.twitch.tv/gql"),
		CommentFeedClientID: getEnvOrDefault("COMMENT_FEED_CLIENT_ID", ""),
		CommentFeedQPS:      getEnvFloat("COMMENT_FEED_QPS", 5),
		CommentFeedBurst:    getEnvAsInt("COMMENT_FEED_BURST", 10),
		HTTPTimeoutSeconds:  getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30),

		MaxRetries: getEnvAsInt("MAX_RETRIES", 3),

		WindowSec:         getEnvAsInt("WINDOW_SEC", 30),
		ClipDurationSec:   getEnvAsInt("CLIP_DURATION_SEC", 30),
		MinGapSec:         getEnvAsInt("MIN_GAP_SEC", 45),
		ThresholdFactor:   getEnvFloat("THRESHOLD_FACTOR", 1.0),
		MaxHighlights:     getEnvAsInt("MAX_HIGHLIGHTS", 0),
		MaxPages:          getEnvAsInt("MAX_PAGES", 15000),
		AnalysisTimeoutMs: getEnvAsInt("ANALYSIS_TIMEOUT_MS", 180000),
		ReactionDelaySec:  getEnvAsInt("REACTION_DELAY_SEC", 20),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// An optional config file can override the analysis defaults above without
	// touching environment variables. Unlike the upstream model-router config
	// this proxy was forked from, it is not required: a missing or absent file
	// just means "use the built-in defaults".
	configFilePath := getEnvOrDefault("CONFIG_FILE", "clipscan.yaml")
	configFile, err := os.Open(configFilePath)
	if err != nil {
		log.Printf("No config file at %s, using defaults and environment variables", configFilePath)
		return
	}
	defer configFile.Close()

	if err := LoadConfigFile(configFile, AppConfig); err != nil {
		log.Fatalf("Failed to parse config file %s: %v", configFilePath, err)
	}

	if AppConfig.CommentFeedClientID == "" {
		log.Println("Warning: COMMENT_FEED_CLIENT_ID is not set; upstream feed requests may be rejected")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: failed to parse environment variable %s=%q as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		} else {
			log.Printf("Warning: failed to parse environment variable %s=%q as float, using default %f: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: failed to parse environment variable %s=%q as duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)
	return decoder.Decode(config)
}
