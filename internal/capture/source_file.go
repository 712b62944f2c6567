package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileSource tails a JSON-lines observation file written by the browser
// automation layer. Existing lines are read first, then new lines as
// fsnotify reports writes.
type FileSource struct {
	path string
	log  zerolog.Logger
}

func NewFileSource(path string, log zerolog.Logger) *FileSource {
	return &FileSource{path: path, log: log.With().Str("component", "source").Str("source", "file").Logger()}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Run(ctx context.Context, out chan<- Observation) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.path); err != nil {
		return fmt.Errorf("watch capture file: %w", err)
	}

	t := &lineTail{r: bufio.NewReader(f)}
	emit := func(line []byte) bool {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return true
		}
		o, err := decodeObservation(line)
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed observation")
			return true
		}
		return send(ctx, out, o)
	}

	if err := t.drain(emit); err != nil {
		return err
	}
	s.log.Info().Str("path", s.path).Msg("tailing capture file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				s.log.Warn().Str("path", event.Name).Msg("capture file removed, stopping")
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := t.drain(emit); err != nil {
				return err
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// lineTail reads complete lines and holds back a trailing partial line
// until its newline arrives.
type lineTail struct {
	r       *bufio.Reader
	partial []byte
}

func (t *lineTail) drain(emit func([]byte) bool) error {
	for {
		chunk, err := t.r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			t.partial = append(t.partial, chunk...)
			return nil
		}
		if err != nil {
			return err
		}
		line := append(t.partial, chunk...)
		t.partial = nil
		if !emit(line) {
			return nil
		}
	}
}
