package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	OpenAIKey string
	GeminiKey string

	Model       string
	S3Bucket    string
	S3Prefix    string
	AWSRegion   string
	HTTPTimeout time.Duration
	MaxImageMB  int
}

func loadConfig() config {
	// A missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	return config{
		OpenAIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		GeminiKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:       getEnv("RETOUCH_MODEL", ""),
		S3Bucket:    getEnv("RETOUCH_S3_BUCKET", ""),
		S3Prefix:    getEnv("RETOUCH_S3_PREFIX", "retouch"),
		AWSRegion:   getEnv("AWS_REGION", ""),
		HTTPTimeout: time.Duration(getEnvInt("RETOUCH_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxImageMB:  getEnvInt("RETOUCH_MAX_IMAGE_MB", 25),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
