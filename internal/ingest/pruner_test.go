package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/testutil"
)

func TestSupersedes(t *testing.T) {
	tests := []struct {
		name      string
		written   string
		candidate string
		want      bool
	}{
		{"prefix_partial", "Hello world", "Hello", true},
		{"inner_substring", "well hello there", "hello", true},
		{"equal", "Hello world", "Hello world", true},
		{"equal_after_trim", "Hello world ", "  Hello world", true},
		{"longer_candidate", "Hello", "Hello world", false},
		{"unrelated", "Good morning", "Hello", false},
		{"case_differs", "Hello world", "hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Supersedes(tt.written, tt.candidate); got != tt.want {
				t.Errorf("Supersedes(%q, %q) = %v, want %v", tt.written, tt.candidate, got, tt.want)
			}
		})
	}
}

func newTestPruner(store database.Store, now time.Time) *Pruner {
	p := NewPruner(store, 60*time.Second, zerolog.Nop())
	p.now = func() time.Time { return now }
	return p
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("partial_deleted_final_kept", func(t *testing.T) {
		store := testutil.NewMemStore()
		partial, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "S", Text: "Hello", Timestamp: base})
		final, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "S", Text: "Hello world", Timestamp: base.Add(time.Second)})

		ids, err := newTestPruner(store, base.Add(time.Second)).Prune(ctx, *final)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if len(ids) != 1 || ids[0] != partial.ID {
			t.Errorf("deleted %v, want [%s]", ids, partial.ID)
		}
		left := store.Transcripts()
		if len(left) != 1 || left[0].ID != final.ID {
			t.Errorf("remaining = %+v, want only the final record", left)
		}
	})

	t.Run("scope_is_meeting_speaker_and_window", func(t *testing.T) {
		store := testutil.NewMemStore()
		now := base.Add(2 * time.Minute)
		otherSpeaker, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "T", Text: "Hello", Timestamp: now})
		otherMeeting, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m2", Speaker: "S", Text: "Hello", Timestamp: now})
		stale, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "S", Text: "Hello", Timestamp: now.Add(-61 * time.Second)})
		boundary, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "S", Text: "Hello", Timestamp: now.Add(-60 * time.Second)})
		written, _ := store.InsertTranscript(ctx, database.Transcript{MeetingID: "m1", Speaker: "S", Text: "Hello world", Timestamp: now})

		ids, err := newTestPruner(store, now).Prune(ctx, *written)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if len(ids) != 1 || ids[0] != boundary.ID {
			t.Errorf("deleted %v, want only the in-window record %s", ids, boundary.ID)
		}
		remaining := map[string]bool{}
		for _, tr := range store.Transcripts() {
			remaining[tr.ID] = true
		}
		for _, id := range []string{otherSpeaker.ID, otherMeeting.ID, stale.ID, written.ID} {
			if !remaining[id] {
				t.Errorf("record %s was deleted", id)
			}
		}
	})

	t.Run("never_deletes_written_record", func(t *testing.T) {
		store := testutil.NewMemStore()
		written, _ := store.InsertTranscript(ctx, database.Transcript{ID: "x", MeetingID: "m1", Speaker: "S", Text: "Same", Timestamp: base})

		ids, err := newTestPruner(store, base).Prune(ctx, *written)
		if err != nil || len(ids) != 0 {
			t.Fatalf("Prune = %v, %v; want nothing deleted", ids, err)
		}
		if n := len(store.Transcripts()); n != 1 {
			t.Errorf("records = %d, want 1", n)
		}
	})

	t.Run("store_error_surfaces", func(t *testing.T) {
		store := testutil.NewMemStore()
		store.ErrRecent = errors.New("db down")
		_, err := newTestPruner(store, base).Prune(ctx, database.Transcript{ID: "x", MeetingID: "m1", Speaker: "S", Text: "Hi there"})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
