package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// setupTestDB opens a fresh migrated database in a temp directory.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// insertTestUser inserts a user and returns its id.
func insertTestUser(t *testing.T, db *sql.DB, email string) string {
	t.Helper()

	repo := NewUserRepo(db)
	user := &UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "hash",
	}
	if err := repo.Insert(context.Background(), user); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return user.ID
}

// insertTestDocument inserts a document for the user and returns its id.
func insertTestDocument(t *testing.T, db *sql.DB, userID, name string) string {
	t.Helper()

	repo := NewDocumentRepo(db)
	doc := &DocumentRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Size:   1024,
		Index:  []byte("blob"),
	}
	if err := repo.Insert(context.Background(), doc); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	return doc.ID
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
