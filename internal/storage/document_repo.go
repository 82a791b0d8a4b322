package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatdoc/internal/service"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a document together with its serialized index blob.
	// The document.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document including its index blob.
	// Returns service.ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// GetOwner returns the owning user id of a document without loading
	// the index blob. Returns service.ErrNotFound if not found.
	GetOwner(ctx context.Context, id string) (string, error)
	// ListByUser returns a user's documents without index blobs, newest first.
	ListByUser(ctx context.Context, userID string) ([]*DocumentRecord, error)
	// Delete removes a document; conversations cascade with it.
	// Returns service.ErrNotFound if no row was deleted.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a document together with its serialized index blob.
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, user_id, name, size, idx) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.UserID, doc.Name, doc.Size, doc.Index,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document including its index blob.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, size, uploaded_at, idx FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.Size, &doc.UploadedAt, &doc.Index)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// GetOwner returns the owning user id of a document.
func (r *DocumentRepo) GetOwner(ctx context.Context, id string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM documents WHERE id = ?",
		id,
	).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", service.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query document owner: %w", err)
	}

	return userID, nil
}

// ListByUser returns a user's documents without index blobs, newest first.
func (r *DocumentRepo) ListByUser(ctx context.Context, userID string) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, size, uploaded_at FROM documents WHERE user_id = ? ORDER BY uploaded_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.Size, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document. Its conversations cascade via the schema.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return service.ErrNotFound
	}
	return nil
}
