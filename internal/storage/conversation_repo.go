package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chatdoc/internal/service"
)

// ConversationStore defines the interface for conversation storage.
// Append is an atomic read-modify-write over the whole message list:
// concurrent appends are serialized by the store, not by the pipeline.
type ConversationStore interface {
	// GetOrCreate returns the document's conversation, creating an empty
	// one on first use.
	GetOrCreate(ctx context.Context, documentID string) (*ConversationRecord, error)
	// Append appends one message and returns the updated conversation.
	// A lost concurrent-write race returns service.ErrConflict; the
	// caller must retry the whole question.
	Append(ctx context.Context, conversationID string, msg Message) (*ConversationRecord, error)
	// ListByDocument returns the document's conversations.
	ListByDocument(ctx context.Context, documentID string) ([]*ConversationRecord, error)
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate returns the document's conversation, creating it if needed.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, documentID string) (*ConversationRecord, error) {
	conv, err := r.getBy(ctx, "document_id", documentID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, service.ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO conversations (id, document_id, messages) VALUES (?, ?, '[]')",
		id, documentID,
	)
	if err != nil {
		// A concurrent first question may have created the row; the
		// unique document_id constraint makes that visible.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return r.getBy(ctx, "document_id", documentID)
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return r.getBy(ctx, "id", id)
}

// Append appends one message, replacing the whole message list under a
// version check so that racing appends cannot drop each other's writes.
func (r *ConversationRepo) Append(ctx context.Context, conversationID string, msg Message) (*ConversationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var rawMessages string
	var version int
	err = tx.QueryRowContext(ctx,
		"SELECT messages, version FROM conversations WHERE id = ?",
		conversationID,
	).Scan(&rawMessages, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(rawMessages), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	messages = append(messages, msg)

	encoded, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE conversations SET messages = ?, version = ? WHERE id = ? AND version = ?",
		string(encoded), version+1, conversationID, version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("conversation %s changed concurrently: %w", conversationID, service.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", err)
	}

	return r.getBy(ctx, "id", conversationID)
}

// ListByDocument returns the document's conversations. With the
// one-conversation-per-document model this is zero or one record.
func (r *ConversationRepo) ListByDocument(ctx context.Context, documentID string) ([]*ConversationRecord, error) {
	conv, err := r.getBy(ctx, "document_id", documentID)
	if errors.Is(err, service.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*ConversationRecord{conv}, nil
}

func (r *ConversationRepo) getBy(ctx context.Context, column, value string) (*ConversationRecord, error) {
	var conv ConversationRecord
	var rawMessages string
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, document_id, messages, version, created_at FROM conversations WHERE %s = ?", column),
		value,
	).Scan(&conv.ID, &conv.DocumentID, &rawMessages, &conv.Version, &conv.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(rawMessages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return &conv, nil
}
