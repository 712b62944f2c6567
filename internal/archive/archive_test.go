package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/config"
	"github.com/snarg/notetaker/internal/database"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	if err := s.Put(ctx, NotesKey("m1"), []byte("first"), "text/markdown"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, NotesKey("m1"), []byte("second"), "text/markdown"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "meetings", "m1.md"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "meetings"))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (temp files left behind?)", len(entries))
	}
	if s.Type() != "local" {
		t.Errorf("Type() = %q, want local", s.Type())
	}
}

func TestNew(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s, err := New(config.S3Config{}, "", zerolog.Nop())
		if err != nil || s != nil {
			t.Errorf("New() = %v, %v; want nil, nil", s, err)
		}
	})
	t.Run("local", func(t *testing.T) {
		s, err := New(config.S3Config{}, t.TempDir(), zerolog.Nop())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if s.Type() != "local" {
			t.Errorf("Type() = %q, want local", s.Type())
		}
	})
}

func TestS3ObjectKey(t *testing.T) {
	s := &S3Store{}
	if got := s.objectKey("meetings/m1.md"); got != "meetings/m1.md" {
		t.Errorf("objectKey() = %q", got)
	}
	s.prefix = "notes/"
	if got := s.objectKey("meetings/m1.md"); got != "notes/meetings/m1.md" {
		t.Errorf("objectKey() with prefix = %q", got)
	}
}

func TestRenderNotes(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	meeting := &database.Meeting{ID: "m1", MeetURL: "https://meet.example/abc", StartedAt: start}
	transcripts := []database.Transcript{
		{Speaker: "Alice", Text: "Hello everyone", Timestamp: start.Add(time.Second)},
		{Speaker: "Bob", Text: "Hi Alice", Timestamp: start.Add(2 * time.Second)},
	}

	t.Run("with_summary", func(t *testing.T) {
		sum := &database.Summary{Content: "Greetings were exchanged.", CreatedAt: start.Add(5 * time.Minute)}
		out := string(RenderNotes("m1", meeting, transcripts, sum))
		for _, want := range []string{
			"# Meeting m1",
			"- URL: https://meet.example/abc",
			"Greetings were exchanged.",
			"**Alice:** Hello everyone",
			"**Bob:** Hi Alice",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if strings.Index(out, "Alice:") > strings.Index(out, "Bob:") {
			t.Error("transcript lines out of order")
		}
	})

	t.Run("no_summary_no_meeting", func(t *testing.T) {
		out := string(RenderNotes("m2", nil, nil, nil))
		if !strings.Contains(out, "_No summary yet._") || !strings.Contains(out, "_No transcripts._") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}
