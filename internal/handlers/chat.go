package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chatdoc/internal/auth"
	"chatdoc/internal/contextutil"
	"chatdoc/internal/rag"
	"chatdoc/internal/storage"
)

// ChatHandler handles question answering and conversation listing.
type ChatHandler struct {
	engine        rag.Engine
	documents     storage.DocumentStore
	conversations storage.ConversationStore
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine rag.Engine, documents storage.DocumentStore, conversations storage.ConversationStore) *ChatHandler {
	return &ChatHandler{
		engine:        engine,
		documents:     documents,
		conversations: conversations,
	}
}

// QuestionRequest is the payload for asking a question.
type QuestionRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

// AnswerResponse is the reply to a question.
type AnswerResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// MessageResponse is one question/answer exchange.
type MessageResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationResponse is the public view of a conversation.
type ConversationResponse struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Messages   []MessageResponse `json:"conversation"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Ask answers a question about an owned document.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	user := auth.CurrentUser(ctx)

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	if !h.requireOwnership(w, r, user.ID, req.DocumentID) {
		return
	}

	resp, err := h.engine.Ask(ctx, rag.AskRequest{
		DocumentID: req.DocumentID,
		Question:   req.Question,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "document_id", req.DocumentID, "error", err)
		writeServiceError(w, err, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Answer:         resp.Answer,
		ConversationID: resp.ConversationID,
	})
}

// Conversations lists the conversation history for an owned document.
func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.CurrentUser(ctx)
	docID := chi.URLParam(r, "id")

	if !h.requireOwnership(w, r, user.ID, docID) {
		return
	}

	convs, err := h.conversations.ListByDocument(ctx, docID)
	if err != nil {
		writeServiceError(w, err, "Failed to list conversations")
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		messages := make([]MessageResponse, 0, len(conv.Messages))
		for _, msg := range conv.Messages {
			messages = append(messages, MessageResponse{
				Question:  msg.Question,
				Answer:    msg.Answer,
				Timestamp: msg.CreatedAt,
			})
		}
		out = append(out, ConversationResponse{
			ID:         conv.ID,
			DocumentID: conv.DocumentID,
			Messages:   messages,
			CreatedAt:  conv.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) requireOwnership(w http.ResponseWriter, r *http.Request, userID, docID string) bool {
	owner, err := h.documents.GetOwner(r.Context(), docID)
	if err != nil {
		writeServiceError(w, err, "Failed to load document")
		return false
	}
	if owner != userID {
		writeError(w, http.StatusForbidden, "Not authorized to access this document")
		return false
	}
	return true
}
