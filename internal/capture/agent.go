package capture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/config"
)

const sourceStopTimeout = 2 * time.Second

// Agent wires a caption source through the filter, reconciler, dispatcher
// and transport. Observations are processed one at a time on the Run
// goroutine.
type Agent struct {
	cfg        *config.CaptureConfig
	source     Source
	reconciler *Reconciler
	dispatcher *Dispatcher
	transport  *Transport
	log        zerolog.Logger

	accepted       atomic.Int64
	droppedMenu    atomic.Int64
	droppedGarbage atomic.Int64
}

// NewAgent builds the capture pipeline for src. clock may be nil.
func NewAgent(cfg *config.CaptureConfig, src Source, clock Clock, log zerolog.Logger) *Agent {
	if clock == nil {
		clock = RealClock()
	}
	a := &Agent{
		cfg:       cfg,
		source:    src,
		transport: NewTransport(cfg.BackendURL, cfg.BackendToken, cfg.TransportTimeout, log),
		log:       log.With().Str("component", "agent").Logger(),
	}
	a.transport.SetMeeting(cfg.MeetingID)
	a.dispatcher = NewDispatcher(clock, cfg.DispatchDebounce, a.transport.SendBatch)
	a.reconciler = NewReconciler(ReconcilerOptions{
		FlushDelay:   cfg.FlushDelay,
		OverlapRatio: cfg.OverlapRatio,
		Clock:        clock,
		Log:          log,
	}, a.dispatcher.Add)
	return a
}

// Run registers a meeting if none is configured, then consumes observations
// until the source ends or ctx is cancelled. On return the open utterance
// has been finalized and every pending fragment handed to the transport.
func (a *Agent) Run(ctx context.Context) error {
	if a.cfg.MeetingID == "" {
		id, err := a.transport.RegisterMeeting(ctx, a.cfg.MeetURL)
		if err != nil {
			return err
		}
		a.cfg.MeetingID = id
		a.transport.SetMeeting(id)
		a.log.Info().Str("meeting_id", id).Str("meet_url", a.cfg.MeetURL).Msg("meeting registered")
	}
	if a.cfg.MeetingID == "" {
		return errors.New("no meeting id")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := make(chan Observation, 64)
	srcErr := make(chan error, 1)
	go func() {
		srcErr <- a.source.Run(runCtx, obs)
	}()

	a.log.Info().
		Str("source", a.source.Name()).
		Str("meeting_id", a.cfg.MeetingID).
		Dur("flush_delay", a.cfg.FlushDelay).
		Dur("dispatch_debounce", a.cfg.DispatchDebounce).
		Msg("capture started")

	var err error
loop:
	for {
		select {
		case o := <-obs:
			a.handle(o)
		case err = <-srcErr:
			// Source finished; take what it already queued.
			for {
				select {
				case o := <-obs:
					a.handle(o)
				default:
					break loop
				}
			}
		case <-ctx.Done():
			cancel()
			// A reader blocked on stdin cannot observe cancellation.
			select {
			case err = <-srcErr:
			case <-time.After(sourceStopTimeout):
				a.log.Warn().Str("source", a.source.Name()).Msg("source did not stop, abandoning it")
			}
			break loop
		}
	}

	a.reconciler.Close()
	a.dispatcher.Stop()

	sent, dropped := a.transport.Stats()
	a.log.Info().
		Int64("accepted", a.accepted.Load()).
		Int64("dropped_menu", a.droppedMenu.Load()).
		Int64("dropped_garbage", a.droppedGarbage.Load()).
		Int64("fragments_sent", sent).
		Int64("fragments_dropped", dropped).
		Msg("capture stopped")

	if err != nil {
		return fmt.Errorf("%s source: %w", a.source.Name(), err)
	}
	return nil
}

func (a *Agent) handle(o Observation) {
	speaker, text, reason := Accept(o)
	switch reason {
	case DropMenu:
		a.droppedMenu.Add(1)
		return
	case DropGarbage:
		a.droppedGarbage.Add(1)
		a.log.Debug().Str("text", o.Text).Msg("garbage caption dropped")
		return
	}
	a.accepted.Add(1)
	a.reconciler.Observe(speaker, text)
}
