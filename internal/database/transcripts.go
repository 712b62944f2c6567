package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transcriptColumns = `id, meeting_id, speaker, text, "timestamp", seq`

func scanTranscript(row pgx.Row) (*Transcript, error) {
	var t Transcript
	if err := row.Scan(&t.ID, &t.MeetingID, &t.Speaker, &t.Text, &t.Timestamp, &t.Seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func collectTranscripts(rows pgx.Rows) ([]Transcript, error) {
	defer rows.Close()
	result := []Transcript{}
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.ID, &t.MeetingID, &t.Speaker, &t.Text, &t.Timestamp, &t.Seq); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// UpsertTranscript inserts or updates a transcript by id. On conflict only
// text and timestamp change; the last write for an id wins.
func (db *DB) UpsertTranscript(ctx context.Context, t Transcript) (*Transcript, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO transcripts (id, meeting_id, speaker, text, "timestamp")
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			"timestamp" = EXCLUDED."timestamp"
		RETURNING `+transcriptColumns,
		t.ID, t.MeetingID, t.Speaker, t.Text, t.Timestamp,
	)
	out, err := scanTranscript(row)
	if err != nil {
		return nil, fmt.Errorf("upsert transcript: %w", err)
	}
	return out, nil
}

// InsertTranscript inserts a transcript with a server-assigned id.
func (db *DB) InsertTranscript(ctx context.Context, t Transcript) (*Transcript, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO transcripts (id, meeting_id, speaker, text, "timestamp")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+transcriptColumns,
		t.ID, t.MeetingID, t.Speaker, t.Text, t.Timestamp,
	)
	out, err := scanTranscript(row)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	return out, nil
}

// LastTranscript returns the most recently inserted transcript for a meeting.
func (db *DB) LastTranscript(ctx context.Context, meetingID string) (*Transcript, error) {
	return scanTranscript(db.Pool.QueryRow(ctx, `
		SELECT `+transcriptColumns+`
		FROM transcripts
		WHERE meeting_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, meetingID))
}

// RecentTranscripts returns transcripts for one speaker in a meeting whose
// timestamp is at or after since, excluding excludeID.
func (db *DB) RecentTranscripts(ctx context.Context, meetingID, speaker, excludeID string, since time.Time) ([]Transcript, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+transcriptColumns+`
		FROM transcripts
		WHERE meeting_id = $1 AND speaker = $2 AND id <> $3 AND "timestamp" >= $4
		ORDER BY seq
	`, meetingID, speaker, excludeID, since)
	if err != nil {
		return nil, err
	}
	return collectTranscripts(rows)
}

// DeleteTranscripts deletes transcripts by id and returns the number removed.
func (db *DB) DeleteTranscripts(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := db.Pool.Exec(ctx, `DELETE FROM transcripts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete transcripts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListTranscripts returns a meeting's transcripts in timestamp order.
func (db *DB) ListTranscripts(ctx context.Context, meetingID string) ([]Transcript, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+transcriptColumns+`
		FROM transcripts
		WHERE meeting_id = $1
		ORDER BY "timestamp", seq
	`, meetingID)
	if err != nil {
		return nil, err
	}
	return collectTranscripts(rows)
}
