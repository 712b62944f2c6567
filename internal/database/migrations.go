package database

import (
	"context"
	"fmt"
	"strings"
)

// migration defines a single idempotent schema migration.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations is the ordered list of schema migrations to apply.
// Each must be idempotent (use IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add transcripts meeting/speaker/timestamp index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_transcripts_meeting_speaker_ts ON transcripts (meeting_id, speaker, "timestamp" DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_transcripts_meeting_speaker_ts')`,
	},
	{
		name:  "add transcripts meeting/seq index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_transcripts_meeting_seq ON transcripts (meeting_id, seq DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_transcripts_meeting_seq')`,
	},
	{
		name:  "add transcripts meeting/timestamp index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_transcripts_meeting_ts ON transcripts (meeting_id, "timestamp")`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_transcripts_meeting_ts')`,
	},
	{
		name:  "add summaries meeting/created_at index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_summaries_meeting_created ON summaries (meeting_id, created_at DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_summaries_meeting_created')`,
	},
	{
		name:  "add meetings started_at index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_meetings_started_at ON meetings (started_at DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_meetings_started_at')`,
	},
}

// Migrate runs all pending schema migrations.
// For each migration, it first checks whether the change is already present.
// If not, it attempts to apply it. If the apply fails (e.g. insufficient
// privileges), the error is returned; the caller should treat this as fatal
// since the application's queries depend on these columns existing.
func (db *DB) Migrate(ctx context.Context) error {
	var pending []migration
	for _, m := range migrations {
		if m.check != "" {
			var exists bool
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return nil
	}

	// Try to apply each pending migration
	applied := 0
	for _, m := range pending {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return &MigrationError{
				failed:  m,
				pending: pending[applied:],
				err:     err,
			}
		}
		db.log.Info().Str("migration", m.name).Msg("schema migration applied")
		applied++
	}
	db.log.Info().Int("applied", applied).Msg("schema migrations complete")
	return nil
}

// MigrationError is returned when a migration fails.
// It includes the SQL needed to apply all remaining migrations manually.
type MigrationError struct {
	failed  migration
	pending []migration
	err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %q failed: %v\n\n", e.failed.name, e.err)
	b.WriteString("Run the following SQL as a database superuser to fix this:\n\n")
	for _, m := range e.pending {
		fmt.Fprintf(&b, "  %s;\n", m.sql)
	}
	b.WriteString("\nThen restart notetaker.")
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.err
}
