package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/audioreader/internal/auth"
	"github.com/nikhilbhutani/audioreader/internal/document"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

// EventLog reads the pipeline audit trail.
type EventLog interface {
	Events(ctx context.Context, documentID string, limit int) ([]pipeline.Event, error)
}

type EventHandler struct {
	docs *document.Service
	log  EventLog
}

// NewEventHandler accepts a nil log, in which case the endpoint reports 503.
func NewEventHandler(docs *document.Service, log EventLog) *EventHandler {
	return &EventHandler{docs: docs, log: log}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.log == nil {
		writeError(w, http.StatusServiceUnavailable, "Audit trail is not configured")
		return
	}

	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"), auth.UserFromContext(r.Context()))
	if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrForbidden) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		slog.Error("event lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.log.Events(r.Context(), doc.ID, limit)
	if err != nil {
		slog.Error("event query failed", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
