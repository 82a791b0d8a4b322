// Package ingest builds a document's searchable index at upload time:
// extract text, segment, embed, build the index, and persist the
// document row with its serialized index in one step. Any failure
// aborts the whole ingestion; no partial document is persisted.
package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"chatdoc/internal/contextutil"
	"chatdoc/internal/extract"
	"chatdoc/internal/segmenter"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
	"chatdoc/internal/vecindex"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks chatdoc/internal/ingest Embedder,DocumentWriter

// Embedder batch-embeds chunk texts, preserving order and length.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentWriter persists the finished document record.
type DocumentWriter interface {
	Insert(ctx context.Context, doc *storage.DocumentRecord) error
}

// Pipeline orchestrates document ingestion.
type Pipeline struct {
	extractor extract.Extractor
	splitter  *segmenter.Splitter
	embedder  Embedder
	documents DocumentWriter
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(extractor extract.Extractor, splitter *segmenter.Splitter, embedder Embedder, documents DocumentWriter) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		documents: documents,
		logger:    slog.Default(),
	}
}

// Ingest processes one uploaded document for the given user and returns
// the persisted record. A document whose extracted text yields zero
// chunks is stored with a valid empty index; retrieval against it
// simply finds nothing.
func (p *Pipeline) Ingest(ctx context.Context, userID, name string, data []byte) (*storage.DocumentRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	text, err := p.extractor.Extract(name, data)
	if err != nil {
		logger.ErrorContext(ctx, "text extraction failed", "name", name, "error", err)
		return nil, err
	}

	chunks := p.splitter.Split(text)
	logger.InfoContext(ctx, "document segmented", "name", name, "chunks", len(chunks))

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		vectors, err = p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			logger.ErrorContext(ctx, "failed to embed chunks", "name", name, "error", err)
			return nil, service.WrapError(err, "failed to embed chunks")
		}
	}

	idx, err := vecindex.Build(chunks, vectors)
	if err != nil {
		return nil, service.WrapError(err, "failed to build index")
	}

	blob, err := idx.Serialize()
	if err != nil {
		return nil, service.WrapError(err, "failed to serialize index")
	}

	doc := &storage.DocumentRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Size:   int64(len(data)),
		Index:  blob,
	}
	if err := p.documents.Insert(ctx, doc); err != nil {
		return nil, service.WrapError(err, "failed to store document")
	}

	logger.InfoContext(ctx, "document ingested",
		"document_id", doc.ID,
		"name", name,
		"size", doc.Size,
		"chunks", idx.Len(),
		"dim", idx.Dim(),
	)
	return doc, nil
}
