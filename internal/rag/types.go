package rag

import "chatdoc/internal/llm"

// AskRequest represents one question against an ingested document.
type AskRequest struct {
	// DocumentID identifies the document whose index is queried.
	// Ownership must already be verified by the caller.
	DocumentID string `json:"document_id"`
	// Question is the user's question.
	Question string `json:"question"`
	// K optionally overrides how many chunks are retrieved. Zero means
	// the engine default.
	K int `json:"k,omitempty"`
}

// AskResponse represents the answer to a question.
type AskResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// ConversationID identifies the document's conversation the
	// exchange was appended to.
	ConversationID string `json:"conversation_id"`
	// Usage is advisory token accounting from the generation provider.
	Usage llm.Usage `json:"usage"`
}
