package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/metrics"
)

// Pruner deletes partial transcripts superseded by a newer write from the
// same speaker.
type Pruner struct {
	store  database.Store
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewPruner(store database.Store, window time.Duration, log zerolog.Logger) *Pruner {
	return &Pruner{
		store:  store,
		window: window,
		now:    time.Now,
		log:    log.With().Str("component", "pruner").Logger(),
	}
}

// Supersedes reports whether a stored candidate text is made redundant by
// the just-written text: equal after trimming, or a shorter substring of it.
func Supersedes(written, candidate string) bool {
	w := strings.TrimSpace(written)
	c := strings.TrimSpace(candidate)
	if c == w {
		return true
	}
	return len(c) < len(w) && strings.Contains(w, c)
}

// Prune removes candidates for written's meeting and speaker within the
// trailing window and returns the deleted ids. written itself is never a
// candidate.
func (p *Pruner) Prune(ctx context.Context, written database.Transcript) ([]string, error) {
	since := p.now().Add(-p.window)
	candidates, err := p.store.RecentTranscripts(ctx, written.MeetingID, written.Speaker, written.ID, since)
	if err != nil {
		return nil, fmt.Errorf("load prune candidates: %w", err)
	}

	var ids []string
	for _, c := range candidates {
		if c.ID == written.ID {
			continue
		}
		if Supersedes(written.Text, c.Text) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	n, err := p.store.DeleteTranscripts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("delete superseded transcripts: %w", err)
	}
	metrics.TranscriptsPrunedTotal.Add(float64(n))
	p.log.Debug().
		Str("meeting_id", written.MeetingID).
		Str("kept_id", written.ID).
		Strs("deleted_ids", ids).
		Msg("pruned superseded transcripts")
	return ids, nil
}
