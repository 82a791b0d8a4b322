package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chatdoc/internal/auth"
	"chatdoc/internal/contextutil"
	"chatdoc/internal/ingest"
	"chatdoc/internal/service"
	"chatdoc/internal/storage"
)

// maxUploadBytes caps how large an uploaded document may be.
const maxUploadBytes = 32 << 20 // 32 MB

// DocumentHandler handles document upload, listing and deletion.
type DocumentHandler struct {
	pipeline  *ingest.Pipeline
	documents storage.DocumentStore
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(pipeline *ingest.Pipeline, documents storage.DocumentStore) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline, documents: documents}
}

// DocumentResponse is the public view of a document.
type DocumentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         string    `json:"size"` // human-readable, in KB
	UploadedDate time.Time `json:"uploaded_date"`
}

func bytesToKilobytes(n int64) string {
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}

// Upload ingests an uploaded document and builds its index.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	user := auth.CurrentUser(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Please upload a file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please upload a file")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	doc, err := h.pipeline.Ingest(ctx, user.ID, header.Filename, data)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "name", header.Filename, "error", err)
		writeServiceError(w, err, "Failed to ingest document")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":  doc.ID,
		"msg": "Document uploaded and index created successfully",
	})
}

// List returns the authenticated user's documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.CurrentUser(ctx)

	docs, err := h.documents.ListByUser(ctx, user.ID)
	if err != nil {
		writeServiceError(w, err, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentResponse{
			ID:           doc.ID,
			Name:         doc.Name,
			Size:         bytesToKilobytes(doc.Size),
			UploadedDate: doc.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns a single document owned by the authenticated user.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.CurrentUser(ctx)
	docID := chi.URLParam(r, "id")

	if !h.requireOwnership(w, r, user.ID, docID) {
		return
	}

	doc, err := h.documents.GetByID(ctx, docID)
	if err != nil {
		writeServiceError(w, err, "Failed to load document")
		return
	}

	writeJSON(w, http.StatusOK, DocumentResponse{
		ID:           doc.ID,
		Name:         doc.Name,
		Size:         bytesToKilobytes(doc.Size),
		UploadedDate: doc.UploadedAt,
	})
}

// Delete removes a document; its index and conversations go with it.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	user := auth.CurrentUser(ctx)
	docID := chi.URLParam(r, "id")

	if !h.requireOwnership(w, r, user.ID, docID) {
		return
	}

	if err := h.documents.Delete(ctx, docID); err != nil {
		writeServiceError(w, err, "Failed to delete document")
		return
	}

	logger.InfoContext(ctx, "document deleted", "document_id", docID)
	writeJSON(w, http.StatusOK, map[string]string{
		"msg": "Document and associated conversations deleted successfully",
	})
}

// requireOwnership writes an error and returns false unless the
// document exists and belongs to the given user.
func (h *DocumentHandler) requireOwnership(w http.ResponseWriter, r *http.Request, userID, docID string) bool {
	owner, err := h.documents.GetOwner(r.Context(), docID)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Document not found")
		return false
	}
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
