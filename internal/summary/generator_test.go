package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/archive"
	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/ingest"
	"github.com/snarg/notetaker/internal/testutil"
)

type fakeCompleter struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func seedTranscripts(t *testing.T, store *testutil.MemStore, meetingID string) {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store.InsertTranscript(ctx, database.Transcript{MeetingID: meetingID, Speaker: "Bob", Text: "second", Timestamp: base.Add(2 * time.Second)})
	store.InsertTranscript(ctx, database.Transcript{MeetingID: meetingID, Speaker: "Alice", Text: "first", Timestamp: base.Add(time.Second)})
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt([]database.Transcript{
		{Speaker: "Alice", Text: "Let's start"},
		{Speaker: "Bob", Text: "Agreed"},
	})
	for _, want := range []string{
		"expert meeting note-taker",
		"- Key discussion points",
		"- Action items",
		"Transcript:\nAlice: Let's start\nBob: Agreed\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestGeneratorSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("persists_and_publishes", func(t *testing.T) {
		store := testutil.NewMemStore()
		seedTranscripts(t, store, "m1")
		comp := &fakeCompleter{reply: "Alice opened, Bob followed."}
		bus := ingest.NewEventBus(16)
		events, cancel := bus.Subscribe(ingest.EventFilter{Types: []string{ingest.EventSummary}})
		defer cancel()

		g := NewGenerator(GeneratorOptions{Store: store, Completer: comp, Bus: bus, Log: zerolog.Nop()})
		sum, err := g.Summarize(ctx, "m1")
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if sum.ID == "" || sum.Content != "Alice opened, Bob followed." {
			t.Errorf("summary = %+v", sum)
		}
		if n := len(store.Summaries()); n != 1 {
			t.Errorf("persisted %d summaries, want 1", n)
		}
		if len(comp.prompts) != 1 || !strings.Contains(comp.prompts[0], "Alice: first\nBob: second\n") {
			t.Errorf("prompt did not list transcripts in timestamp order: %q", comp.prompts)
		}
		select {
		case evt := <-events:
			if evt.MeetingID != "m1" {
				t.Errorf("event MeetingID = %q, want m1", evt.MeetingID)
			}
		case <-time.After(time.Second):
			t.Error("no summary event published")
		}
	})

	t.Run("no_transcripts_placeholder", func(t *testing.T) {
		store := testutil.NewMemStore()
		comp := &fakeCompleter{reply: "unused"}
		g := NewGenerator(GeneratorOptions{Store: store, Completer: comp, Log: zerolog.Nop()})

		sum, err := g.Summarize(ctx, "m1")
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if sum.ID != "" || sum.Content != NoTranscriptsContent {
			t.Errorf("summary = %+v, want unpersisted placeholder", sum)
		}
		if len(comp.prompts) != 0 {
			t.Error("completer called with no transcripts")
		}
		if n := len(store.Summaries()); n != 0 {
			t.Errorf("persisted %d summaries, want 0", n)
		}
	})

	t.Run("empty_completion", func(t *testing.T) {
		store := testutil.NewMemStore()
		seedTranscripts(t, store, "m1")
		g := NewGenerator(GeneratorOptions{Store: store, Completer: &fakeCompleter{reply: "  "}, Log: zerolog.Nop()})

		sum, err := g.Summarize(ctx, "m1")
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if sum.Content != "No summary generated." {
			t.Errorf("Content = %q", sum.Content)
		}
	})

	t.Run("completion_error", func(t *testing.T) {
		store := testutil.NewMemStore()
		seedTranscripts(t, store, "m1")
		boom := errors.New("rate limited")
		g := NewGenerator(GeneratorOptions{Store: store, Completer: &fakeCompleter{err: boom}, Log: zerolog.Nop()})

		if _, err := g.Summarize(ctx, "m1"); !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped %v", err, boom)
		}
		if n := len(store.Summaries()); n != 0 {
			t.Errorf("persisted %d summaries after failure", n)
		}
	})

	t.Run("not_configured", func(t *testing.T) {
		g := NewGenerator(GeneratorOptions{Store: testutil.NewMemStore(), Log: zerolog.Nop()})
		if _, err := g.Summarize(ctx, "m1"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("err = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("writes_archive_notes", func(t *testing.T) {
		store := testutil.NewMemStore()
		store.AddMeeting(database.Meeting{ID: "m1", MeetURL: "https://meet.example/x", StartedAt: time.Now()})
		seedTranscripts(t, store, "m1")
		dir := t.TempDir()
		g := NewGenerator(GeneratorOptions{
			Store:     store,
			Completer: &fakeCompleter{reply: "Short notes."},
			Archive:   archive.NewLocalStore(dir),
			Log:       zerolog.Nop(),
		})

		if _, err := g.Summarize(ctx, "m1"); err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "meetings", "m1.md"))
		if err != nil {
			t.Fatalf("notes not written: %v", err)
		}
		if !strings.Contains(string(data), "Short notes.") || !strings.Contains(string(data), "https://meet.example/x") {
			t.Errorf("notes content:\n%s", data)
		}
	})
}
