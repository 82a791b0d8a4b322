package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"chatdoc/internal/extract"
	"chatdoc/internal/ingest/mocks"
	"chatdoc/internal/segmenter"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
	"chatdoc/internal/vecindex"
)

func newTestSplitter(t *testing.T) *segmenter.Splitter {
	t.Helper()
	s, err := segmenter.NewSplitter(20, 4, "\n")
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	return s
}

func TestIngest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	documents := mocks.NewMockDocumentWriter(ctrl)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{float32(i), 1, 0}
			}
			return vecs, nil
		})

	var saved *storage.DocumentRecord
	documents.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *storage.DocumentRecord) error {
			saved = doc
			return nil
		})

	p := NewPipeline(extract.New(), newTestSplitter(t), embedder, documents)

	data := []byte("first line of the file\nsecond line\nthird line")
	doc, err := p.Ingest(context.Background(), "user-1", "notes.txt", data)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if doc.ID == "" {
		t.Error("Ingest() returned document without id")
	}
	if doc.UserID != "user-1" || doc.Name != "notes.txt" {
		t.Errorf("Ingest() document = %+v", doc)
	}
	if doc.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", doc.Size, len(data))
	}
	if saved == nil || saved.ID != doc.ID {
		t.Fatal("Insert() did not receive the returned document")
	}

	idx, err := vecindex.Deserialize(saved.Index)
	if err != nil {
		t.Fatalf("stored index blob does not deserialize: %v", err)
	}
	if idx.Len() == 0 {
		t.Error("stored index is empty for non-empty text")
	}
}

func TestIngestExtractionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No embedder or store calls are expected after a failed extraction.
	embedder := mocks.NewMockEmbedder(ctrl)
	documents := mocks.NewMockDocumentWriter(ctrl)

	p := NewPipeline(extract.New(), newTestSplitter(t), embedder, documents)

	_, err := p.Ingest(context.Background(), "user-1", "archive.zip", []byte("PK..."))
	var extErr *service.ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("Ingest() error = %v, want ExtractionError", err)
	}
}

func TestIngestEmbeddingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	documents := mocks.NewMockDocumentWriter(ctrl)

	provErr := &service.ProviderError{Stage: "embed", Err: errors.New("timeout")}
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return(nil, provErr)
	// Insert must not be called: a document with a broken index is worse
	// than no document.

	p := NewPipeline(extract.New(), newTestSplitter(t), embedder, documents)

	_, err := p.Ingest(context.Background(), "user-1", "notes.txt", []byte("some text"))
	var gotProv *service.ProviderError
	if !errors.As(err, &gotProv) {
		t.Errorf("Ingest() error = %v, want ProviderError", err)
	}
}

func TestIngestWhitespaceOnlyDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// A document with text but no chunks skips embedding entirely and is
	// stored with a valid empty index.
	embedder := mocks.NewMockEmbedder(ctrl)
	documents := mocks.NewMockDocumentWriter(ctrl)

	splitter, err := segmenter.NewSplitter(20, 0, "\n")
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	var saved *storage.DocumentRecord
	documents.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *storage.DocumentRecord) error {
			saved = doc
			return nil
		})

	p := NewPipeline(stubExtractor{text: ""}, splitter, embedder, documents)

	doc, err := p.Ingest(context.Background(), "user-1", "empty.txt", []byte(" "))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	idx, err := vecindex.Deserialize(saved.Index)
	if err != nil {
		t.Fatalf("stored index blob does not deserialize: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("index Len() = %d, want 0", idx.Len())
	}
	if doc.ID == "" {
		t.Error("Ingest() returned document without id")
	}
}

func TestIngestStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	documents := mocks.NewMockDocumentWriter(ctrl)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return([][]float32{{1, 0}}, nil)
	documents.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	p := NewPipeline(stubExtractor{text: "short text"}, newTestSplitter(t), embedder, documents)

	if _, err := p.Ingest(context.Background(), "user-1", "notes.txt", []byte("short text")); err == nil {
		t.Error("Ingest() succeeded despite store failure")
	}
}

// stubExtractor returns fixed text for any input.
type stubExtractor struct {
	text string
}

func (s stubExtractor) Extract(string, []byte) (string, error) {
	return s.text, nil
}
