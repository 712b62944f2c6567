package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FragmentKind identifies which revision of an utterance a fragment carries.
type FragmentKind int

const (
	KindCreate FragmentKind = iota
	KindExtend
	KindFinalize
)

func (k FragmentKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindExtend:
		return "extend"
	case KindFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Fragment is one emitted revision of an utterance. StableID is shared by
// every revision of the same utterance.
type Fragment struct {
	StableID   string
	Speaker    string
	Text       string
	ObservedAt time.Time
	Kind       FragmentKind
}

// ReconcilerOptions tunes the reconciliation heuristics.
type ReconcilerOptions struct {
	FlushDelay   time.Duration
	OverlapRatio float64
	Clock        Clock
	NewID        func() string
	Log          zerolog.Logger
}

type utterance struct {
	id      string
	speaker string
	text    string
}

// Reconciler turns a stream of (speaker, text) observations into create,
// extend and finalize fragments. It holds at most one open utterance and one
// pending flush timer.
type Reconciler struct {
	mu        sync.Mutex
	opts      ReconcilerOptions
	emit      func(Fragment)
	open      *utterance // nil while idle
	flush     *ScheduledTask
	finalized map[string]struct{}
	closed    bool
	log       zerolog.Logger
}

// NewReconciler returns an idle reconciler that reports fragments to emit.
// emit is called with the reconciler's lock held and must not call back into it.
func NewReconciler(opts ReconcilerOptions, emit func(Fragment)) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 1600 * time.Millisecond
	}
	if opts.OverlapRatio <= 0 {
		opts.OverlapRatio = 0.6
	}
	r := &Reconciler{
		opts:      opts,
		emit:      emit,
		finalized: make(map[string]struct{}),
		log:       opts.Log.With().Str("component", "reconciler").Logger(),
	}
	r.flush = NewScheduledTask(opts.Clock, opts.FlushDelay, r.onFlush)
	return r
}

// Observe feeds one filtered observation into the machine.
func (r *Reconciler) Observe(speaker, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	u := r.open
	if u == nil || u.speaker != speaker {
		r.finalizeLocked()
		r.startLocked(speaker, text)
		return
	}

	switch {
	case text == u.text:
		r.flush.Reschedule()
	case strings.HasPrefix(text, u.text):
		u.text = text
		r.emitLocked(KindExtend)
		r.flush.Reschedule()
	case WordOverlap(u.text, text) > r.opts.OverlapRatio:
		r.log.Debug().Str("stable_id", u.id).Str("from", u.text).Str("to", text).Msg("caption corrected")
		u.text = text
		r.emitLocked(KindExtend)
		r.flush.Reschedule()
	default:
		r.finalizeLocked()
		r.startLocked(speaker, text)
	}
}

// Close finalizes the open utterance and ignores further observations.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeLocked()
	r.closed = true
}

// Current returns the open utterance's speaker and stable id.
func (r *Reconciler) Current() (speaker, stableID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		return "", "", false
	}
	return r.open.speaker, r.open.id, true
}

func (r *Reconciler) onFlush(token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.flush.Claim(token) {
		return
	}
	r.finalizeLocked()
}

func (r *Reconciler) startLocked(speaker, text string) {
	r.open = &utterance{id: r.opts.NewID(), speaker: speaker, text: text}
	r.emitLocked(KindCreate)
	r.flush.Reschedule()
}

// finalizeLocked closes the open utterance. Empty text and text already
// finalized earlier in the session are not re-emitted.
func (r *Reconciler) finalizeLocked() {
	u := r.open
	if u == nil {
		return
	}
	r.flush.Cancel()
	r.open = nil

	norm := strings.ToLower(strings.TrimSpace(u.text))
	if norm == "" {
		return
	}
	if _, seen := r.finalized[norm]; seen {
		r.log.Debug().Str("stable_id", u.id).Msg("duplicate finalize suppressed")
		return
	}
	r.finalized[norm] = struct{}{}
	r.emit(Fragment{
		StableID:   u.id,
		Speaker:    u.speaker,
		Text:       u.text,
		ObservedAt: r.opts.Clock.Now(),
		Kind:       KindFinalize,
	})
}

func (r *Reconciler) emitLocked(kind FragmentKind) {
	r.emit(Fragment{
		StableID:   r.open.id,
		Speaker:    r.open.speaker,
		Text:       r.open.text,
		ObservedAt: r.opts.Clock.Now(),
		Kind:       kind,
	})
}

// WordOverlap is the share of words in b that also appear in a, relative to
// the longer of the two word counts.
func WordOverlap(a, b string) float64 {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	n := max(len(aw), len(bw))
	if n == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(aw))
	for _, w := range aw {
		seen[w] = struct{}{}
	}
	matched := 0
	for _, w := range bw {
		if _, ok := seen[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(n)
}
