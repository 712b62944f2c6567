package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/metrics"
)

// Summarizer produces a summary for a meeting.
type Summarizer interface {
	Summarize(ctx context.Context, meetingID string) (*database.Summary, error)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Store      database.Store
	Summarizer Summarizer
	Interval   time.Duration
	Log        zerolog.Logger
}

// Scheduler starts at most one background summarization per meeting once
// Interval has passed since the meeting's last summary (or its start).
type Scheduler struct {
	store      database.Store
	summarizer Summarizer
	lock       *GenerationLock
	interval   time.Duration
	now        func() time.Time
	log        zerolog.Logger
	wg         sync.WaitGroup
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		store:      opts.Store,
		summarizer: opts.Summarizer,
		lock:       NewGenerationLock(),
		interval:   opts.Interval,
		now:        time.Now,
		log:        opts.Log.With().Str("component", "summary-scheduler").Logger(),
	}
}

// MaybeTrigger starts a detached summarization when the meeting is due and
// none is already running. It reports whether one was started.
func (s *Scheduler) MaybeTrigger(ctx context.Context, meetingID string) (bool, error) {
	if s.lock.Held(meetingID) {
		return false, nil
	}

	var (
		last    *database.Summary
		meeting *database.Meeting
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.store.LatestSummary(gctx, meetingID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("latest summary: %w", err)
		}
		last = sum
		return nil
	})
	g.Go(func() error {
		m, err := s.store.GetMeeting(gctx, meetingID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("get meeting: %w", err)
		}
		meeting = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	ref := time.Unix(0, 0)
	if meeting != nil {
		ref = meeting.StartedAt
	}
	if last != nil && last.CreatedAt.After(ref) {
		ref = last.CreatedAt
	}
	elapsed := s.now().Sub(ref)
	if elapsed < s.interval {
		return false, nil
	}

	if !s.lock.TryAcquire(meetingID) {
		return false, nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.lock.Release(meetingID)
		if _, err := s.run(context.WithoutCancel(ctx), meetingID, "auto"); err != nil {
			s.log.Error().Err(err).Str("meeting_id", meetingID).Msg("scheduled summarization failed")
		}
	}()
	s.log.Info().
		Str("meeting_id", meetingID).
		Dur("elapsed", elapsed).
		Msg("summarization triggered")
	return true, nil
}

// SummarizeNow runs a summarization synchronously. It does not consult the
// generation lock.
func (s *Scheduler) SummarizeNow(ctx context.Context, meetingID string) (*database.Summary, error) {
	return s.run(ctx, meetingID, "manual")
}

func (s *Scheduler) run(ctx context.Context, meetingID, trigger string) (*database.Summary, error) {
	start := time.Now()
	sum, err := s.summarizer.Summarize(ctx, meetingID)
	metrics.SummaryDuration.Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case sum.ID == "":
		result = "empty"
	}
	metrics.SummariesTotal.WithLabelValues(trigger, result).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("meeting_id", meetingID).
		Str("trigger", trigger).
		Str("summary_id", sum.ID).
		Dur("took", time.Since(start)).
		Msg("summary generated")
	return sum, nil
}

// InFlight returns the number of background summarizations running.
func (s *Scheduler) InFlight() int {
	return s.lock.InFlight()
}

// Wait blocks until background summarizations finish or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
