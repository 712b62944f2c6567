package capture

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestReaderSource(t *testing.T) {
	input := "{\"speaker\":\"Ana\",\"text\":\"one\"}\n\n{bad\n{\"speaker\":\"Bob\",\"text\":\"two\",\"roles\":[\"dialog\"]}\n"
	out := make(chan Observation, 8)
	if err := NewReaderSource(strings.NewReader(input), zerolog.Nop()).Run(context.Background(), out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var got []Observation
	for o := range out {
		got = append(got, o)
	}
	if len(got) != 2 {
		t.Fatalf("got %d observations, want 2", len(got))
	}
	if got[1].Speaker != "Bob" || len(got[1].Roles) != 1 || !InMenu(got[1]) {
		t.Errorf("second observation = %+v", got[1])
	}
}

func TestLineTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tail.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	reader, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	tail := &lineTail{r: bufio.NewReader(reader)}

	var lines []string
	collect := func(b []byte) bool {
		lines = append(lines, string(b))
		return true
	}

	f.WriteString("first\nsec")
	if err := tail.drain(collect); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "first\n" {
		t.Fatalf("lines = %q, want only the complete line", lines)
	}

	f.WriteString("ond\n")
	if err := tail.drain(collect); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[1] != "second\n" {
		t.Errorf("lines = %q, want partial line joined", lines)
	}
}

func TestFileSourceTails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.jsonl")
	if err := os.WriteFile(path, []byte(`{"speaker":"Ana","text":"existing"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Observation, 8)
	done := make(chan error, 1)
	go func() { done <- NewFileSource(path, zerolog.Nop()).Run(ctx, out) }()

	next := func() Observation {
		t.Helper()
		select {
		case o := <-out:
			return o
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for observation")
			return Observation{}
		}
	}

	if o := next(); o.Text != "existing" {
		t.Fatalf("first observation = %+v", o)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	f.WriteString(`{"speaker":"Bob","text":"appen`)
	f.WriteString(`ded"}` + "\n")

	if o := next(); o.Speaker != "Bob" || o.Text != "appended" {
		t.Errorf("tailed observation = %+v", o)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	err := NewFileSource(filepath.Join(t.TempDir(), "missing.jsonl"), zerolog.Nop()).Run(context.Background(), make(chan Observation))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
