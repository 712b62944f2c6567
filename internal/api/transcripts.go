package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/notetaker/internal/ingest"
)

// TranscriptSubmitter persists caption fragments.
type TranscriptSubmitter interface {
	Submit(ctx context.Context, req ingest.SubmitRequest) (*ingest.Result, error)
}

type TranscriptsHandler struct {
	svc TranscriptSubmitter
}

func NewTranscriptsHandler(svc TranscriptSubmitter) *TranscriptsHandler {
	return &TranscriptsHandler{svc: svc}
}

// Create accepts one fragment and responds with the stored record. Pruning
// and summary scheduling happen after the response.
func (h *TranscriptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingest.SubmitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	res, err := h.svc.Submit(r.Context(), req)
	switch {
	case errors.Is(err, ingest.ErrMissingField), errors.Is(err, ingest.ErrInvalidTimestamp):
		WriteErrorDetail(w, http.StatusBadRequest, "invalid transcript", err.Error())
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("meeting_id", req.MeetingID).Msg("failed to save transcript")
		WriteError(w, http.StatusInternalServerError, "failed to save transcript")
		return
	}

	if res.Duplicate {
		w.Header().Set("X-Duplicate", "true")
	}
	WriteJSON(w, http.StatusOK, res.Transcript)
}

// Routes registers transcript routes on the given router.
func (h *TranscriptsHandler) Routes(r chi.Router) {
	r.Post("/transcripts", h.Create)
}
