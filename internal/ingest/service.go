package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/metrics"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// SubmitRequest is a caption fragment submitted by the capture agent. ID is
// the agent's stable id; when empty the server assigns one.
type SubmitRequest struct {
	ID        string `json:"id,omitempty"`
	MeetingID string `json:"meeting_id"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Result is the outcome of a submission.
type Result struct {
	Transcript *database.Transcript
	// Duplicate is set when an id-less submission matched the meeting's
	// last transcript and nothing was written.
	Duplicate bool
}

// SummaryTrigger decides whether a write should start a summarization.
type SummaryTrigger interface {
	MaybeTrigger(ctx context.Context, meetingID string) (bool, error)
}

// ServiceOptions configures the ingestion service.
type ServiceOptions struct {
	Store       database.Store
	PruneWindow time.Duration
	Workers     int
	QueueSize   int
	Trigger     SummaryTrigger // optional
	Bus         *EventBus      // optional
	Log         zerolog.Logger
}

// Service persists transcript submissions and runs the prune and summary
// side paths on a worker pool after responding.
type Service struct {
	store   database.Store
	pruner  *Pruner
	trigger SummaryTrigger
	bus     *EventBus
	pool    *Pool
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(opts ServiceOptions) *Service {
	log := opts.Log.With().Str("component", "ingest").Logger()
	s := &Service{
		store:   opts.Store,
		pruner:  NewPruner(opts.Store, opts.PruneWindow, opts.Log),
		trigger: opts.Trigger,
		bus:     opts.Bus,
		now:     time.Now,
		log:     log,
	}
	s.pool = NewPool(PoolOptions{
		Workers:   opts.Workers,
		QueueSize: opts.QueueSize,
		Process:   s.afterWrite,
		Log:       opts.Log,
	})
	return s
}

func (s *Service) Start() { s.pool.Start() }

// Stop drains queued post-write jobs.
func (s *Service) Stop() { s.pool.Stop() }

func (s *Service) Stats() QueueStats { return s.pool.Stats() }

// Submit validates and persists a fragment. With an id it upserts; without
// one it suppresses an exact repeat of the meeting's last transcript. The
// prune and summary side paths are queued and never affect the result.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	for _, f := range []struct{ name, value string }{
		{"meeting_id", req.MeetingID},
		{"speaker", req.Speaker},
		{"text", req.Text},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	ts := s.now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, req.Timestamp)
		}
		ts = parsed.UTC()
	}

	rec := database.Transcript{
		ID:        req.ID,
		MeetingID: req.MeetingID,
		Speaker:   req.Speaker,
		Text:      req.Text,
		Timestamp: ts,
	}

	var (
		written *database.Transcript
		err     error
		result  string
	)
	if rec.ID != "" {
		written, err = s.store.UpsertTranscript(ctx, rec)
		result = "upserted"
	} else {
		last, lerr := s.store.LastTranscript(ctx, rec.MeetingID)
		switch {
		case lerr == nil && last.Speaker == rec.Speaker && last.Text == rec.Text:
			metrics.TranscriptsIngestedTotal.WithLabelValues("duplicate").Inc()
			s.log.Debug().Str("meeting_id", rec.MeetingID).Str("transcript_id", last.ID).Msg("duplicate submission suppressed")
			return &Result{Transcript: last, Duplicate: true}, nil
		case lerr != nil && !errors.Is(lerr, database.ErrNotFound):
			return nil, fmt.Errorf("load last transcript: %w", lerr)
		}
		written, err = s.store.InsertTranscript(ctx, rec)
		result = "inserted"
	}
	if err != nil {
		return nil, err
	}
	metrics.TranscriptsIngestedTotal.WithLabelValues(result).Inc()

	if s.bus != nil {
		s.bus.Publish(EventTranscript, written.MeetingID, written)
	}
	if !s.pool.Enqueue(PostWriteJob{Transcript: *written, Enqueued: s.now()}) {
		metrics.PostWriteDroppedTotal.Inc()
		s.log.Warn().
			Str("meeting_id", written.MeetingID).
			Str("transcript_id", written.ID).
			Msg("post-write queue full, skipping prune and summary check")
	}
	return &Result{Transcript: written}, nil
}

// afterWrite runs the two independent side paths for one write.
func (s *Service) afterWrite(ctx context.Context, job PostWriteJob) error {
	t := job.Transcript
	log := s.log.With().Str("meeting_id", t.MeetingID).Str("transcript_id", t.ID).Logger()

	ids, pruneErr := s.pruner.Prune(ctx, t)
	if pruneErr != nil {
		metrics.PruneFailuresTotal.Inc()
		log.Error().Err(pruneErr).Msg("overlap prune failed")
	} else if len(ids) > 0 && s.bus != nil {
		s.bus.Publish(EventTranscriptPruned, t.MeetingID, map[string]any{
			"kept_id":     t.ID,
			"deleted_ids": ids,
		})
	}

	var triggerErr error
	if s.trigger != nil {
		if _, triggerErr = s.trigger.MaybeTrigger(ctx, t.MeetingID); triggerErr != nil {
			log.Error().Err(triggerErr).Msg("summary schedule check failed")
		}
	}
	return errors.Join(pruneErr, triggerErr)
}
