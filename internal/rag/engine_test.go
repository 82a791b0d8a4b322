package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"chatdoc/internal/llm"
	"chatdoc/internal/rag/mocks"
	"chatdoc/internal/segmenter"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
	"chatdoc/internal/vecindex"
)

// makeIndexBlob builds a serialized index from parallel texts and vectors.
func makeIndexBlob(t *testing.T, texts []string, vectors [][]float32) []byte {
	t.Helper()

	chunks := make([]segmenter.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = segmenter.Chunk{Index: i, Text: text}
	}
	idx, err := vecindex.Build(chunks, vectors)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	blob, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	return blob
}

func testDocument(t *testing.T) *storage.DocumentRecord {
	t.Helper()
	blob := makeIndexBlob(t,
		[]string{"apples are red", "bananas are yellow", "grapes are purple"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	)
	return &storage.DocumentRecord{ID: "doc-1", UserID: "user-1", Name: "fruit.txt", Index: blob}
}

func TestAsk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	generator := mocks.NewMockGenerator(ctrl)
	documents := mocks.NewMockDocumentSource(ctrl)
	conversations := mocks.NewMockConversationStore(ctrl)

	doc := testDocument(t)
	documents.EXPECT().GetByID(gomock.Any(), "doc-1").Return(doc, nil)
	// The query vector points at the second chunk, then the first.
	embedder.EXPECT().EmbedQuery(gomock.Any(), "what color are bananas?").Return([]float32{0.3, 1, 0}, nil)

	var prompt string
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p string) (string, llm.Usage, error) {
			prompt = p
			return "Bananas are yellow.", llm.Usage{PromptTokens: 50, CompletionTokens: 5, TotalTokens: 55}, nil
		})

	conv := &storage.ConversationRecord{ID: "conv-1", DocumentID: "doc-1"}
	conversations.EXPECT().GetOrCreate(gomock.Any(), "doc-1").Return(conv, nil)
	conversations.EXPECT().
		Append(gomock.Any(), "conv-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, msg storage.Message) (*storage.ConversationRecord, error) {
			if msg.Question != "what color are bananas?" {
				t.Errorf("appended question = %q", msg.Question)
			}
			if msg.Answer != "Bananas are yellow." {
				t.Errorf("appended answer = %q", msg.Answer)
			}
			if msg.CreatedAt.IsZero() {
				t.Error("appended message has zero timestamp")
			}
			updated := *conv
			updated.Messages = []storage.Message{msg}
			updated.Version = 1
			return &updated, nil
		})

	e := NewEngine(embedder, generator, documents, conversations, "", 2)

	resp, err := e.Ask(context.Background(), AskRequest{DocumentID: "doc-1", Question: "what color are bananas?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "Bananas are yellow." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want conv-1", resp.ConversationID)
	}
	if resp.Usage.TotalTokens != 55 {
		t.Errorf("TotalTokens = %d, want 55", resp.Usage.TotalTokens)
	}

	if !strings.Contains(prompt, "what color are bananas?") {
		t.Errorf("prompt missing question: %q", prompt)
	}
	first := strings.Index(prompt, "bananas are yellow")
	second := strings.Index(prompt, "apples are red")
	if first == -1 || second == -1 {
		t.Fatalf("prompt missing retrieved chunks: %q", prompt)
	}
	if first > second {
		t.Error("retrieved chunks appear out of rank order in the prompt")
	}
	if strings.Contains(prompt, "grapes are purple") {
		t.Error("prompt contains a chunk beyond k")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: a blank question must not touch any dependency.
	e := NewEngine(
		mocks.NewMockEmbedder(ctrl),
		mocks.NewMockGenerator(ctrl),
		mocks.NewMockDocumentSource(ctrl),
		mocks.NewMockConversationStore(ctrl),
		"", 0,
	)

	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := e.Ask(context.Background(), AskRequest{DocumentID: "doc-1", Question: question})
		if !errors.Is(err, service.ErrInvalidArgument) {
			t.Errorf("Ask(%q) error = %v, want ErrInvalidArgument", question, err)
		}
	}
}

func TestAskDocumentNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documents := mocks.NewMockDocumentSource(ctrl)
	documents.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, service.ErrNotFound)

	e := NewEngine(
		mocks.NewMockEmbedder(ctrl),
		mocks.NewMockGenerator(ctrl),
		documents,
		mocks.NewMockConversationStore(ctrl),
		"", 0,
	)

	_, err := e.Ask(context.Background(), AskRequest{DocumentID: "missing", Question: "anything?"})
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Ask() error = %v, want ErrNotFound", err)
	}
}

func TestAskGenerationFailureLeavesConversationUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	generator := mocks.NewMockGenerator(ctrl)
	documents := mocks.NewMockDocumentSource(ctrl)
	// No conversation expectations: a failed generation must not create
	// or append to the conversation.
	conversations := mocks.NewMockConversationStore(ctrl)

	documents.EXPECT().GetByID(gomock.Any(), "doc-1").Return(testDocument(t), nil)
	embedder.EXPECT().EmbedQuery(gomock.Any(), gomock.Any()).Return([]float32{1, 0, 0}, nil)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("", llm.Usage{}, &service.ProviderError{Stage: "generate", Err: errors.New("timeout")})

	e := NewEngine(embedder, generator, documents, conversations, "", 0)

	_, err := e.Ask(context.Background(), AskRequest{DocumentID: "doc-1", Question: "anything?"})
	var provErr *service.ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("Ask() error = %v, want ProviderError", err)
	}
}

func TestAskEmptyIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// EmbedQuery must not be called for an empty index.
	embedder := mocks.NewMockEmbedder(ctrl)
	generator := mocks.NewMockGenerator(ctrl)
	documents := mocks.NewMockDocumentSource(ctrl)
	conversations := mocks.NewMockConversationStore(ctrl)

	doc := &storage.DocumentRecord{
		ID:    "doc-1",
		Index: makeIndexBlob(t, nil, nil),
	}
	documents.EXPECT().GetByID(gomock.Any(), "doc-1").Return(doc, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt string) (string, llm.Usage, error) {
			if !strings.Contains(prompt, "Context from document: \n") {
				t.Errorf("prompt context slot not empty: %q", prompt)
			}
			return "The information isn't present.", llm.Usage{}, nil
		})

	conv := &storage.ConversationRecord{ID: "conv-1", DocumentID: "doc-1"}
	conversations.EXPECT().GetOrCreate(gomock.Any(), "doc-1").Return(conv, nil)
	conversations.EXPECT().Append(gomock.Any(), "conv-1", gomock.Any()).Return(conv, nil)

	e := NewEngine(embedder, generator, documents, conversations, "", 0)

	resp, err := e.Ask(context.Background(), AskRequest{DocumentID: "doc-1", Question: "anything?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer == "" {
		t.Error("Ask() returned empty answer")
	}
}

func TestAskSequentialQuestionsAccumulate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	generator := mocks.NewMockGenerator(ctrl)
	documents := mocks.NewMockDocumentSource(ctrl)

	doc := testDocument(t)
	documents.EXPECT().GetByID(gomock.Any(), "doc-1").Return(doc, nil).Times(2)
	embedder.EXPECT().EmbedQuery(gomock.Any(), gomock.Any()).Return([]float32{1, 0, 0}, nil).Times(2)
	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("an answer", llm.Usage{}, nil).Times(2)

	conversations := &memConversationStore{}
	e := NewEngine(embedder, generator, documents, conversations, "", 2)
	ctx := context.Background()

	first, err := e.Ask(ctx, AskRequest{DocumentID: "doc-1", Question: "first?"})
	if err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
	second, err := e.Ask(ctx, AskRequest{DocumentID: "doc-1", Question: "second?"})
	if err != nil {
		t.Fatalf("second Ask() error = %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Errorf("conversation ids differ: %q vs %q", first.ConversationID, second.ConversationID)
	}

	msgs := conversations.conv.Messages
	if len(msgs) != 2 {
		t.Fatalf("conversation has %d messages, want 2", len(msgs))
	}
	if msgs[0].Question != "first?" || msgs[1].Question != "second?" {
		t.Errorf("messages out of order: %+v", msgs)
	}
	if msgs[1].CreatedAt.Before(msgs[0].CreatedAt) {
		t.Error("second message timestamp precedes the first")
	}
}

// memConversationStore is an in-memory single-conversation store.
type memConversationStore struct {
	conv *storage.ConversationRecord
}

func (m *memConversationStore) GetOrCreate(_ context.Context, documentID string) (*storage.ConversationRecord, error) {
	if m.conv == nil {
		m.conv = &storage.ConversationRecord{
			ID:         "conv-1",
			DocumentID: documentID,
			CreatedAt:  time.Now().UTC(),
		}
	}
	return m.conv, nil
}

func (m *memConversationStore) Append(_ context.Context, conversationID string, msg storage.Message) (*storage.ConversationRecord, error) {
	if m.conv == nil || m.conv.ID != conversationID {
		return nil, service.ErrNotFound
	}
	m.conv.Messages = append(m.conv.Messages, msg)
	m.conv.Version++
	return m.conv, nil
}
