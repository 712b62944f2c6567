package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func collectSummaries(rows pgx.Rows) ([]Summary, error) {
	defer rows.Close()
	result := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.Content, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// InsertSummary persists a new summary created now.
func (db *DB) InsertSummary(ctx context.Context, meetingID, content string) (*Summary, error) {
	s := Summary{ID: uuid.NewString(), MeetingID: meetingID, Content: content}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO summaries (id, meeting_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.MeetingID, s.Content, time.Now().UTC()).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return &s, nil
}

// LatestSummary returns the newest summary for a meeting, or ErrNotFound.
func (db *DB) LatestSummary(ctx context.Context, meetingID string) (*Summary, error) {
	var s Summary
	err := db.Pool.QueryRow(ctx, `
		SELECT id, meeting_id, content, created_at
		FROM summaries
		WHERE meeting_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, meetingID).Scan(&s.ID, &s.MeetingID, &s.Content, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListSummaries returns a meeting's summaries oldest first.
func (db *DB) ListSummaries(ctx context.Context, meetingID string) ([]Summary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, meeting_id, content, created_at
		FROM summaries
		WHERE meeting_id = $1
		ORDER BY created_at
	`, meetingID)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}
