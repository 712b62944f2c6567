package capture

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// ReaderSource reads JSON-lines observations from r, typically stdin.
type ReaderSource struct {
	r   io.Reader
	log zerolog.Logger
}

func NewReaderSource(r io.Reader, log zerolog.Logger) *ReaderSource {
	return &ReaderSource{r: r, log: log.With().Str("component", "source").Str("source", "reader").Logger()}
}

func (s *ReaderSource) Name() string { return "stdin" }

// Run returns nil at end of input.
func (s *ReaderSource) Run(ctx context.Context, out chan<- Observation) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		o, err := decodeObservation(line)
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed observation")
			continue
		}
		if !send(ctx, out, o) {
			return nil
		}
	}
	return scanner.Err()
}
