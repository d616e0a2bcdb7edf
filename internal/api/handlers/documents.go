package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/audioreader/internal/auth"
	"github.com/nikhilbhutani/audioreader/internal/document"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

type DocumentHandler struct {
	docs     *document.Service
	pipeline *pipeline.Service
}

func NewDocumentHandler(docs *document.Service, p *pipeline.Service) *DocumentHandler {
	return &DocumentHandler{docs: docs, pipeline: p}
}

// Upload accepts a multipart "file" field. An optional "userId" field must
// match the session user.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, document.MaxFileSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if uid := r.FormValue("userId"); uid != "" && uid != user.ID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	doc, err := h.docs.Upload(r.Context(), document.UploadRequest{
		UserID:      user.ID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	switch {
	case errors.Is(err, document.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	case errors.Is(err, document.ErrTooLarge):
		writeError(w, http.StatusBadRequest, "File too large")
		return
	case err != nil:
		slog.Error("upload failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documentId": doc.ID,
		"url":        doc.FileURL,
		"filename":   doc.OriginalFilename,
		"size":       doc.FileSize,
		"type":       doc.FileType,
	})
}

type processRequest struct {
	DocumentID string `json:"documentId" validate:"required,max=128"`
	UserID     string `json:"userId" validate:"required,max=128"`
	VoiceID    string `json:"voiceId" validate:"omitempty,max=64"`
}

// Process marks the document processing and hands the run to the
// background executor. It answers before extraction starts.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req processRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID != user.ID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	err := h.pipeline.Start(r.Context(), pipeline.ProcessRequest{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		VoiceID:    req.VoiceID,
	})
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
		return
	case errors.Is(err, pipeline.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	case err != nil:
		slog.Error("process request failed", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Processing failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

// Status hides documents of other users behind a 404.
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"), auth.UserFromContext(r.Context()))
	if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrForbidden) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		slog.Error("status check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to check status")
		return
	}

	writeJSON(w, http.StatusOK, doc.StatusResponse())
}

func (h *DocumentHandler) Reader(w http.ResponseWriter, r *http.Request) {
	view, err := h.docs.Reader(r.Context(), chi.URLParam(r, "id"), auth.UserFromContext(r.Context()))
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, document.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, document.ErrNotReady):
		writeError(w, http.StatusConflict, "Document is not ready")
	case err != nil:
		slog.Error("reader load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load document")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.docs.Delete(r.Context(), chi.URLParam(r, "id"), auth.UserFromContext(r.Context()))
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, document.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case err != nil:
		slog.Error("delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
