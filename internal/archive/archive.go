// Package archive writes rendered meeting notes to a local directory or an
// S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/config"
)

// Store abstracts archive backends.
type Store interface {
	// Put writes data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Type returns "local" or "s3".
	Type() string
}

// New picks a backend from config. S3 wins when a bucket is configured.
// Returns nil, nil when archiving is disabled.
func New(cfg config.S3Config, dir string, log zerolog.Logger) (Store, error) {
	if cfg.Enabled() {
		s3store, err := NewS3Store(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s3store.HeadBucket(ctx); err != nil {
			return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
				cfg.Bucket, cfg.Endpoint, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 archive connection verified")
		return s3store, nil
	}
	if dir != "" {
		return NewLocalStore(dir), nil
	}
	return nil, nil
}

// NotesKey is the archive key for a meeting's notes.
func NotesKey(meetingID string) string {
	return "meetings/" + meetingID + ".md"
}
