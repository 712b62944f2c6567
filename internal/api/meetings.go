package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/summary"
)

// SummaryRunner generates a summary on demand.
type SummaryRunner interface {
	SummarizeNow(ctx context.Context, meetingID string) (*database.Summary, error)
}

type MeetingsHandler struct {
	store     database.Store
	summaries SummaryRunner
}

func NewMeetingsHandler(store database.Store, summaries SummaryRunner) *MeetingsHandler {
	return &MeetingsHandler{store: store, summaries: summaries}
}

type createMeetingRequest struct {
	MeetURL string `json:"meet_url"`
}

func (h *MeetingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(req.MeetURL) == "" {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid meeting", "meet_url is required")
		return
	}

	m, err := h.store.CreateMeeting(r.Context(), req.MeetURL)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to create meeting")
		WriteError(w, http.StatusInternalServerError, "failed to create meeting")
		return
	}
	hlog.FromRequest(r).Info().Str("meeting_id", m.ID).Str("meet_url", m.MeetURL).Msg("meeting registered")
	WriteJSON(w, http.StatusCreated, m)
}

func (h *MeetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.store.ListMeetings(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to list meetings")
		WriteError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	if meetings == nil {
		meetings = []database.MeetingListItem{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"meetings": meetings,
		"total":    len(meetings),
	})
}

func (h *MeetingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	m, err := h.store.GetMeeting(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("meeting_id", id).Msg("failed to load meeting")
		WriteError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}

	detail := database.MeetingDetail{Meeting: *m}
	if detail.Transcripts, err = h.store.ListTranscripts(ctx, id); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("meeting_id", id).Msg("failed to load transcripts")
		WriteError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if detail.Summaries, err = h.store.ListSummaries(ctx, id); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("meeting_id", id).Msg("failed to load summaries")
		WriteError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if detail.Transcripts == nil {
		detail.Transcripts = []database.Transcript{}
	}
	if detail.Summaries == nil {
		detail.Summaries = []database.Summary{}
	}
	WriteJSON(w, http.StatusOK, detail)
}

// Summarize generates a summary synchronously, independent of the
// background scheduler.
func (h *MeetingsHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Model latency is unbounded; lift the server write timeout.
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sum, err := h.summaries.SummarizeNow(r.Context(), id)
	switch {
	case errors.Is(err, summary.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "summarization not configured")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("meeting_id", id).Msg("manual summarization failed")
		WriteErrorDetail(w, http.StatusBadGateway, "summary generation failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

// Routes registers meeting routes on the given router.
func (h *MeetingsHandler) Routes(r chi.Router) {
	r.Post("/meetings", h.Create)
	r.Get("/meetings", h.List)
	r.Get("/meetings/{id}", h.Get)
	r.Post("/meetings/{id}/summary", h.Summarize)
}
