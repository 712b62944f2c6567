package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateMeeting registers a new meeting starting now.
func (db *DB) CreateMeeting(ctx context.Context, meetURL string) (*Meeting, error) {
	m := Meeting{ID: uuid.NewString(), MeetURL: meetURL}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO meetings (id, meet_url, started_at)
		VALUES ($1, $2, $3)
		RETURNING started_at
	`, m.ID, m.MeetURL, time.Now().UTC()).Scan(&m.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}
	return &m, nil
}

// GetMeeting returns a meeting by id, or ErrNotFound.
func (db *DB) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	err := db.Pool.QueryRow(ctx, `
		SELECT id, meet_url, started_at FROM meetings WHERE id = $1
	`, id).Scan(&m.ID, &m.MeetURL, &m.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListMeetings returns all meetings newest first with transcript counts and summaries.
func (db *DB) ListMeetings(ctx context.Context) ([]MeetingListItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT m.id, m.meet_url, m.started_at,
			(SELECT count(*) FROM transcripts t WHERE t.meeting_id = m.id)
		FROM meetings m
		ORDER BY m.started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []MeetingListItem{}
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		var it MeetingListItem
		if err := rows.Scan(&it.ID, &it.MeetURL, &it.StartedAt, &it.TranscriptCount); err != nil {
			return nil, err
		}
		it.Summaries = []Summary{}
		index[it.ID] = len(items)
		ids = append(ids, it.ID)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return items, nil
	}

	srows, err := db.Pool.Query(ctx, `
		SELECT id, meeting_id, content, created_at
		FROM summaries
		WHERE meeting_id = ANY($1)
		ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, err
	}
	summaries, err := collectSummaries(srows)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		if i, ok := index[s.MeetingID]; ok {
			items[i].Summaries = append(items[i].Summaries, s)
		}
	}
	return items, nil
}
