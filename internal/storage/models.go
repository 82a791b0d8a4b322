package storage

import "time"

// UserRecord represents an account in the database.
type UserRecord struct {
	ID           string // UUID
	Email        string
	FullName     string
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// DocumentRecord represents an uploaded document. Index is the
// serialized vector index built at ingestion time; it is immutable and
// replaced only by a new upload.
type DocumentRecord struct {
	ID         string // UUID
	UserID     string // Foreign key to users.id
	Name       string // Original file name
	Size       int64  // Upload size in bytes
	UploadedAt time.Time
	Index      []byte // Serialized vecindex blob
}

// Message is one question/answer exchange in a conversation. Immutable
// once appended; ordering is append order.
type Message struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationRecord is the append-only question/answer log for one
// document. Version counts committed appends and guards the
// read-modify-write cycle.
type ConversationRecord struct {
	ID         string // UUID
	DocumentID string
	Messages   []Message
	Version    int
	CreatedAt  time.Time
}
