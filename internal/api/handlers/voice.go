package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/audioreader/internal/speech"
)

// Previewer speaks a sample without storing it.
type Previewer interface {
	Preview(ctx context.Context, sampleText, voiceID string) (*speech.Audio, error)
}

type VoiceHandler struct {
	previewer Previewer
}

func NewVoiceHandler(p Previewer) *VoiceHandler {
	return &VoiceHandler{previewer: p}
}

func (h *VoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"voices":       speech.Catalog(),
		"defaultVoice": speech.DefaultVoice,
	})
}

type previewRequest struct {
	Text  string `json:"text" validate:"required,max=1000"`
	Voice string `json:"voice" validate:"required"`
}

func (h *VoiceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Text and voice are required")
		return
	}

	audio, err := h.previewer.Preview(r.Context(), req.Text, req.Voice)
	switch {
	case errors.Is(err, speech.ErrUnknownVoice):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, speech.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Voice provider is not configured")
		return
	case err != nil:
		slog.Error("voice preview failed", "voice", req.Voice, "error", err)
		writeError(w, http.StatusInternalServerError, "Voice preview failed")
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}
