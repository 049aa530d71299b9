package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	MaxUploadBytes int64

	OllamaBaseURL         string
	OllamaModel           string
	OllamaStatusTimeout   time.Duration
	OllamaGenerateTimeout time.Duration
	OllamaPullTimeout     time.Duration

	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	AdminAPIKey string
	OverlayFont string
	SejdaPaths  []string
	OCRDisabled bool
}

// Load reads configuration from environment variables, with a best-effort
// .env file for dev convenience and sensible defaults.
func Load() Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./media")
	v.SetDefault("MAX_UPLOAD_MB", 50)
	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.2:3b")
	v.SetDefault("OLLAMA_STATUS_TIMEOUT_SECONDS", 5)
	v.SetDefault("OLLAMA_GENERATE_TIMEOUT_SECONDS", 120)
	v.SetDefault("OLLAMA_PULL_TIMEOUT_SECONDS", 300)
	v.SetDefault("UI_REDIRECT_URL", "http://localhost:3000")

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := v.GetString("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		DatabaseURL:     dbURL,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),

		MaxUploadBytes: int64(v.GetInt("MAX_UPLOAD_MB")) << 20,

		OllamaBaseURL:         strings.TrimRight(v.GetString("OLLAMA_BASE_URL"), "/"),
		OllamaModel:           v.GetString("OLLAMA_MODEL"),
		OllamaStatusTimeout:   time.Duration(v.GetInt("OLLAMA_STATUS_TIMEOUT_SECONDS")) * time.Second,
		OllamaGenerateTimeout: time.Duration(v.GetInt("OLLAMA_GENERATE_TIMEOUT_SECONDS")) * time.Second,
		OllamaPullTimeout:     time.Duration(v.GetInt("OLLAMA_PULL_TIMEOUT_SECONDS")) * time.Second,

		JWTSecret:          v.GetString("JWT_SECRET"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		UIRedirectURL:      v.GetString("UI_REDIRECT_URL"),

		AdminAPIKey: v.GetString("ADMIN_API_KEY"),
		OverlayFont: v.GetString("OVERLAY_FONT"),
		SejdaPaths:  splitAndTrim(v.GetString("SEJDA_PATHS")),
		OCRDisabled: v.GetBool("OCR_DISABLED"),
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
