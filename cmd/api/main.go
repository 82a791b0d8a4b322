// chatdoc API server: upload documents, build per-document semantic
// indexes, and answer questions about them with retrieval-augmented
// generation.
package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"path/filepath"
	"time"

	"chatdoc/internal/auth"
	"chatdoc/internal/config"
	"chatdoc/internal/extract"
	"chatdoc/internal/http"
	"chatdoc/internal/ingest"
	"chatdoc/internal/llm"
	"chatdoc/internal/rag"
	"chatdoc/internal/segmenter"
	"chatdoc/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize database
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	userRepo := storage.NewUserRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	conversationRepo := storage.NewConversationRepo(db)

	// Provider clients
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	embedder.BatchSize = cfg.EmbedBatchSize
	generator := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Segmenter settings are validated up front so a bad configuration
	// fails here rather than on the first upload.
	splitter, err := segmenter.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkSeparator)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}

	// Ingestion pipeline
	pipeline := ingest.NewPipeline(extract.New(), splitter, embedder, documentRepo)

	// RAG engine
	engine := rag.NewEngine(embedder, generator, documentRepo, conversationRepo, cfg.PromptTemplate, cfg.RetrievalK)
	slog.Info("RAG engine initialized",
		"embedding_model", cfg.EmbeddingModelName,
		"llm_model", cfg.LLMModelName,
		"k", cfg.RetrievalK,
	)

	// Auth service
	authService := auth.NewService(userRepo, []byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLDays)*24*time.Hour)

	// Router
	router := http.NewRouter(&http.Deps{
		AuthService:   authService,
		Pipeline:      pipeline,
		Engine:        engine,
		Documents:     documentRepo,
		Conversations: conversationRepo,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
