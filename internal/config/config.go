// Package config loads application configuration from environment
// variables, with optional .env support.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	VectorSize         int
	EmbedBatchSize     int
	ChunkSize          int
	ChunkOverlap       int
	ChunkSeparator     string
	RetrievalK         int
	PromptTemplate     string // empty means the built-in default
	DBPath             string
	APIPort            string
	JWTSecret          string
	TokenTTLDays       int
	LogLevel           slog.Level
	LogFormat          string
}

// Load reads configuration from environment variables and returns a
// Config struct. It applies defaults for optional fields and validates
// required fields. If a .env file exists in the current directory it is
// loaded first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-3.5-turbo-instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-ada-002"),
		ChunkSeparator:     getEnv("CHUNK_SEPARATOR", "\n"),
		PromptTemplate:     os.Getenv("PROMPT_TEMPLATE"),
		DBPath:             getEnv("DB_PATH", "./data/chatdoc.db"),
		APIPort:            getEnv("API_PORT", "8000"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 1536); err != nil {
		return nil, err
	}
	if cfg.EmbedBatchSize, err = getEnvInt("EMBED_BATCH_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 2000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 4); err != nil {
		return nil, err
	}
	if cfg.TokenTTLDays, err = getEnvInt("TOKEN_TTL_DAYS", 30); err != nil {
		return nil, err
	}

	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE")
	}
	if cfg.RetrievalK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must be greater than 0")
	}
	if cfg.TokenTTLDays <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_DAYS must be greater than 0")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable or returns a default.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}
