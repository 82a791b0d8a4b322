package handlers

import (
	"context"
	"time"

	"chatdoc/internal/rag"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
)

// fakeUserStore is an in-memory storage.UserStore.
type fakeUserStore struct {
	users map[string]*storage.UserRecord
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*storage.UserRecord)}
}

func (f *fakeUserStore) Insert(_ context.Context, user *storage.UserRecord) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return service.ErrConflict
		}
	}
	cp := *user
	cp.CreatedAt = time.Now().UTC()
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*storage.UserRecord, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*storage.UserRecord, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, service.ErrNotFound
}

// fakeDocumentStore is an in-memory storage.DocumentStore.
type fakeDocumentStore struct {
	docs map[string]*storage.DocumentRecord
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*storage.DocumentRecord)}
}

func (f *fakeDocumentStore) Insert(_ context.Context, doc *storage.DocumentRecord) error {
	cp := *doc
	cp.UploadedAt = time.Now().UTC()
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentStore) GetByID(_ context.Context, id string) (*storage.DocumentRecord, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, service.ErrNotFound
}

func (f *fakeDocumentStore) GetOwner(_ context.Context, id string) (string, error) {
	if d, ok := f.docs[id]; ok {
		return d.UserID, nil
	}
	return "", service.ErrNotFound
}

func (f *fakeDocumentStore) ListByUser(_ context.Context, userID string) ([]*storage.DocumentRecord, error) {
	var out []*storage.DocumentRecord
	for _, d := range f.docs {
		if d.UserID == userID {
			cp := *d
			cp.Index = nil
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return service.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

// fakeConversationStore is an in-memory storage.ConversationStore
// keyed by document id.
type fakeConversationStore struct {
	convs map[string]*storage.ConversationRecord
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{convs: make(map[string]*storage.ConversationRecord)}
}

func (f *fakeConversationStore) GetOrCreate(_ context.Context, documentID string) (*storage.ConversationRecord, error) {
	if c, ok := f.convs[documentID]; ok {
		return c, nil
	}
	c := &storage.ConversationRecord{
		ID:         "conv-" + documentID,
		DocumentID: documentID,
		CreatedAt:  time.Now().UTC(),
	}
	f.convs[documentID] = c
	return c, nil
}

func (f *fakeConversationStore) Append(_ context.Context, conversationID string, msg storage.Message) (*storage.ConversationRecord, error) {
	for _, c := range f.convs {
		if c.ID == conversationID {
			c.Messages = append(c.Messages, msg)
			c.Version++
			return c, nil
		}
	}
	return nil, service.ErrNotFound
}

func (f *fakeConversationStore) ListByDocument(_ context.Context, documentID string) ([]*storage.ConversationRecord, error) {
	if c, ok := f.convs[documentID]; ok {
		return []*storage.ConversationRecord{c}, nil
	}
	return nil, nil
}

// stubEmbedder returns a fixed-size vector for every input.
type stubEmbedder struct{}

func (stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

// stubEngine returns canned responses or a fixed error.
type stubEngine struct {
	resp rag.AskResponse
	err  error
	last rag.AskRequest
}

func (s *stubEngine) Ask(_ context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	s.last = req
	if s.err != nil {
		return rag.AskResponse{}, s.err
	}
	return s.resp, nil
}
