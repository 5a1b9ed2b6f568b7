package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// LLM provider selection
	LLMProvider   string // "gemini" (default), "ollama", "fallback"
	LLMModel      string
	GeminiAPIKey  string
	OllamaBaseURL string

	// Embeddings configuration
	EmbeddingsProvider    string // "gemini" (default), "ollama", "hash"
	GoogleEmbeddingsModel string // e.g. "text-embedding-004"
	OllamaEmbeddingsModel string
	EmbeddingDimensions   int

	// Web search
	TavilyAPIKey string

	// Memory configuration
	SessionsDir      string
	IndexDir         string
	MemoryWindow     int
	MaxChunkSize     int
	ChunkOverlap     int
	MinChunkSize     int
	MaxContextChunks int
	ScoreThreshold   float64

	// Upload handling
	UploadDir         string
	MaxFileSize       int64
	AllowedExtensions []string

	// Sandbox
	SandboxTimeout time.Duration

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Index compaction
	CompactionInterval time.Duration

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:      getEnv("LLM_MODEL", "gemini-2.0-flash"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "gemini"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OllamaEmbeddingsModel: getEnv("OLLAMA_EMBEDDINGS_MODEL", "nomic-embed-text"),
		EmbeddingDimensions:   getEnvInt("EMBEDDING_DIM", 384),

		TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),

		SessionsDir:      getEnv("SESSIONS_DIR", "sessions"),
		IndexDir:         getEnv("INDEX_DIR", "index"),
		MemoryWindow:     getEnvInt("MEMORY_WINDOW", 10),
		MaxChunkSize:     getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:     getEnvInt("MIN_CHUNK_SIZE", 100),
		MaxContextChunks: getEnvInt("MAX_CONTEXT_CHUNKS", 3),
		ScoreThreshold:   getEnvFloat64("SCORE_THRESHOLD", 0.0),

		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 16*1024*1024), // 16MB
		AllowedExtensions: strings.Split(getEnv("ALLOWED_FILE_TYPES", "pdf,txt,md,py,js,go,java,cpp,c,html,css,xlsx"), ","),

		SandboxTimeout: time.Duration(getEnvInt("SANDBOX_TIMEOUT_SECONDS", 10)) * time.Second,

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		CompactionInterval: time.Duration(getEnvInt("COMPACTION_INTERVAL_MINUTES", 30)) * time.Minute,

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.LLMProvider == "gemini" && cfg.GeminiAPIKey == "" {
		// Not fatal: provider selection probes availability and falls back.
		cfg.LLMProvider = "fallback"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
