package config

import (
	"log"
	"os"
	"strings"
)

// Config holds application configuration, populated from the environment.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	// Object storage for uploaded manuscripts and extracted text.
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	// Audit pipeline.
	AuditQueueURL string
	LLMProvider   string
	LLMModel      string
	AuditVersion  string

	DatabaseURL string

	// Google OAuth login.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// IsProduction reports whether the normalized environment is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             normalizeEnv(getEnv("ENV", "dev")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		AuditQueueURL: getEnv("MA_SQS_QUEUE_URL", ""),
		LLMProvider:   getEnv("LLM_PROVIDER", "openai"),
		LLMModel:      getEnv("LLM_MODEL", ""),
		AuditVersion:  getEnv("AUDIT_VERSION", "gpt-5-mini:v1"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}

	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == "s3" {
		return "s3"
	}
	return "local"
}
