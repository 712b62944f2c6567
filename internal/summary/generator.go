// Package summary generates meeting summaries and decides when to run them.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/archive"
	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/ingest"
)

// ErrNotConfigured is returned when no LLM backend is configured.
var ErrNotConfigured = errors.New("summarization is not configured")

const (
	// NoTranscriptsContent is the placeholder returned for a meeting with no
	// transcripts. It is never persisted.
	NoTranscriptsContent = "No transcripts found. The bot may not have joined or no conversation was recorded."
	emptyCompletion      = "No summary generated."
)

// Completer sends a prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Store     database.Store
	Completer Completer        // nil disables summarization
	Archive   archive.Store    // optional
	Bus       *ingest.EventBus // optional
	Log       zerolog.Logger
}

// Generator turns a meeting's transcript into a persisted summary.
type Generator struct {
	store     database.Store
	completer Completer
	archive   archive.Store
	bus       *ingest.EventBus
	now       func() time.Time
	log       zerolog.Logger
}

func NewGenerator(opts GeneratorOptions) *Generator {
	return &Generator{
		store:     opts.Store,
		completer: opts.Completer,
		archive:   opts.Archive,
		bus:       opts.Bus,
		now:       time.Now,
		log:       opts.Log.With().Str("component", "summary-generator").Logger(),
	}
}

// Summarize loads the meeting's transcripts, asks the model for notes and
// persists the result. A meeting without transcripts yields an unpersisted
// placeholder with an empty ID.
func (g *Generator) Summarize(ctx context.Context, meetingID string) (*database.Summary, error) {
	if g.completer == nil {
		return nil, ErrNotConfigured
	}

	transcripts, err := g.store.ListTranscripts(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}
	if len(transcripts) == 0 {
		return &database.Summary{
			MeetingID: meetingID,
			Content:   NoTranscriptsContent,
			CreatedAt: g.now().UTC(),
		}, nil
	}

	content, err := g.completer.Complete(ctx, BuildPrompt(transcripts))
	if err != nil {
		return nil, fmt.Errorf("summary completion failed: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		content = emptyCompletion
	}

	sum, err := g.store.InsertSummary(ctx, meetingID, content)
	if err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}

	if g.bus != nil {
		g.bus.Publish(ingest.EventSummary, meetingID, sum)
	}
	g.writeNotes(ctx, meetingID, transcripts, sum)
	return sum, nil
}

// writeNotes archives the rendered notes. Failures are logged only.
func (g *Generator) writeNotes(ctx context.Context, meetingID string, transcripts []database.Transcript, sum *database.Summary) {
	if g.archive == nil {
		return
	}
	meeting, err := g.store.GetMeeting(ctx, meetingID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		g.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meeting lookup for notes failed")
	}
	key := archive.NotesKey(meetingID)
	data := archive.RenderNotes(meetingID, meeting, transcripts, sum)
	if err := g.archive.Put(ctx, key, data, "text/markdown; charset=utf-8"); err != nil {
		g.log.Warn().Err(err).Str("meeting_id", meetingID).Str("key", key).Msg("archiving meeting notes failed")
		return
	}
	g.log.Debug().Str("meeting_id", meetingID).Str("backend", g.archive.Type()).Str("key", key).Msg("meeting notes archived")
}

// BuildPrompt renders the note-taker prompt for a transcript.
func BuildPrompt(transcripts []database.Transcript) string {
	var b strings.Builder
	b.WriteString("You are an expert meeting note-taker. Summarize the following meeting transcript.\n")
	b.WriteString("Include:\n")
	b.WriteString("- Full meeting summary\n")
	b.WriteString("- Key discussion points\n")
	b.WriteString("- Action items\n\n")
	b.WriteString("Transcript:\n")
	for _, t := range transcripts {
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
