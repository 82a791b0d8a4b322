// Package rag answers questions about an ingested document by
// retrieving its most relevant chunks and conditioning generation on
// them, persisting each exchange in the document's conversation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatdoc/internal/contextutil"
	"chatdoc/internal/llm"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
	"chatdoc/internal/vecindex"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks chatdoc/internal/rag Embedder,Generator,DocumentSource,ConversationStore

// DefaultK is how many chunks are retrieved per question unless the
// request overrides it.
const DefaultK = 4

// Embedder embeds a single query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, llm.Usage, error)
}

// DocumentSource loads document records including their index blobs.
type DocumentSource interface {
	GetByID(ctx context.Context, id string) (*storage.DocumentRecord, error)
}

// ConversationStore persists question/answer exchanges per document.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, documentID string) (*storage.ConversationRecord, error)
	Append(ctx context.Context, conversationID string, msg storage.Message) (*storage.ConversationRecord, error)
}

// Engine answers questions about ingested documents.
type Engine interface {
	// Ask retrieves context for the question, generates an answer and
	// appends the exchange to the document's conversation.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// engine implements the Engine interface.
type engine struct {
	embedder      Embedder
	generator     Generator
	documents     DocumentSource
	conversations ConversationStore
	template      string
	k             int
	logger        *slog.Logger
}

// NewEngine creates a new engine. template falls back to
// DefaultTemplate and k to DefaultK when zero-valued.
func NewEngine(embedder Embedder, generator Generator, documents DocumentSource, conversations ConversationStore, template string, k int) Engine {
	if template == "" {
		template = DefaultTemplate
	}
	if k <= 0 {
		k = DefaultK
	}
	return &engine{
		embedder:      embedder,
		generator:     generator,
		documents:     documents,
		conversations: conversations,
		template:      template,
		k:             k,
		logger:        slog.Default(),
	}
}

// Ask answers a question about one document.
func (e *engine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Reject blank questions before any provider call is made.
	if strings.TrimSpace(req.Question) == "" {
		return AskResponse{}, fmt.Errorf("question cannot be empty: %w", service.ErrInvalidArgument)
	}

	k := req.K
	if k <= 0 {
		k = e.k
	}

	logger.InfoContext(ctx, "question received",
		"document_id", req.DocumentID,
		"question_length", len(req.Question),
		"k", k,
	)

	doc, err := e.documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("failed to load document %s", req.DocumentID))
	}

	idx, err := vecindex.Deserialize(doc.Index)
	if err != nil {
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("failed to restore index for document %s", req.DocumentID))
	}

	chunks, err := e.retrieve(ctx, idx, req.Question, k)
	if err != nil {
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("retrieval failed for document %s", req.DocumentID))
	}
	logger.InfoContext(ctx, "chunks retrieved", "document_id", req.DocumentID, "count", len(chunks))

	prompt := assemblePrompt(e.template, chunks, req.Question)

	answer, usage, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		// The conversation is untouched: the append only happens after
		// generation succeeds.
		logger.ErrorContext(ctx, "generation failed", "document_id", req.DocumentID, "error", err)
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("generation failed for document %s", req.DocumentID))
	}
	logger.InfoContext(ctx, "answer generated",
		"document_id", req.DocumentID,
		"answer_length", len(answer),
		"total_tokens", usage.TotalTokens,
	)

	conv, err := e.conversations.GetOrCreate(ctx, req.DocumentID)
	if err != nil {
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("failed to load conversation for document %s", req.DocumentID))
	}

	msg := storage.Message{
		Question:  req.Question,
		Answer:    answer,
		CreatedAt: nowUTC(),
	}
	conv, err = e.conversations.Append(ctx, conv.ID, msg)
	if err != nil {
		return AskResponse{}, service.WrapError(err, fmt.Sprintf("failed to append to conversation for document %s", req.DocumentID))
	}

	return AskResponse{
		Answer:         answer,
		ConversationID: conv.ID,
		Usage:          usage,
	}, nil
}

// nowUTC timestamps messages; timestamps are monotonically
// non-decreasing across appends by construction.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// retrieve embeds the question and returns the texts of the k most
// similar chunks in rank order. An empty index yields no chunks, which
// is not an error; the prompt then carries an empty context and the
// template instructs the model to say the information is absent.
func (e *engine) retrieve(ctx context.Context, idx *vecindex.Index, question string, k int) ([]string, error) {
	if idx.Len() == 0 {
		return nil, nil
	}

	queryVec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := idx.Query(queryVec, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Chunk.Text
	}
	return texts, nil
}
