package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteDB is the single-file Store used for local development and tests.
// Times are stored as unix nanoseconds.
type SQLiteDB struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ Store = (*SQLiteDB)(nil)

// sqlitePath turns "sqlite:/path/db" or "sqlite:///path/db" into a driver DSN.
// "file:" URLs are passed through.
func sqlitePath(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "file:") {
		return databaseURL
	}
	p := strings.TrimPrefix(databaseURL, "sqlite:")
	if strings.HasPrefix(p, "//") {
		p = strings.TrimPrefix(p, "//")
	}
	return p
}

// OpenSQLite opens (creating if needed) a SQLite database.
func OpenSQLite(ctx context.Context, databaseURL string, log zerolog.Logger) (*SQLiteDB, error) {
	dsn := sqlitePath(databaseURL)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	log.Info().Str("path", dsn).Msg("sqlite database opened")
	return &SQLiteDB{db: db, log: log}, nil
}

// InitSchema applies the SQLite schema. Every statement is idempotent.
func (s *SQLiteDB) InitSchema(ctx context.Context, schemaSQL []byte) error {
	if _, err := s.db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() {
	s.log.Info().Msg("closing sqlite database")
	s.db.Close()
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func (s *SQLiteDB) CreateMeeting(ctx context.Context, meetURL string) (*Meeting, error) {
	m := Meeting{ID: uuid.NewString(), MeetURL: meetURL, StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, meet_url, started_at) VALUES (?, ?, ?)`,
		m.ID, m.MeetURL, toNanos(m.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}
	return &m, nil
}

func (s *SQLiteDB) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	var started int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, meet_url, started_at FROM meetings WHERE id = ?`, id,
	).Scan(&m.ID, &m.MeetURL, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.StartedAt = fromNanos(started)
	return &m, nil
}

func (s *SQLiteDB) ListMeetings(ctx context.Context) ([]MeetingListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.meet_url, m.started_at,
			(SELECT count(*) FROM transcripts t WHERE t.meeting_id = m.id)
		FROM meetings m
		ORDER BY m.started_at DESC
	`)
	if err != nil {
		return nil, err
	}

	items := []MeetingListItem{}
	for rows.Next() {
		var it MeetingListItem
		var started int64
		if err := rows.Scan(&it.ID, &it.MeetURL, &started, &it.TranscriptCount); err != nil {
			rows.Close()
			return nil, err
		}
		it.StartedAt = fromNanos(started)
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The single connection must be released before issuing follow-up queries.
	for i := range items {
		sums, err := s.ListSummaries(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Summaries = sums
	}
	return items, nil
}

const sqliteTranscriptColumns = `id, meeting_id, speaker, text, "timestamp", seq`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTranscript(row rowScanner) (*Transcript, error) {
	var t Transcript
	var ts int64
	if err := row.Scan(&t.ID, &t.MeetingID, &t.Speaker, &t.Text, &ts, &t.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Timestamp = fromNanos(ts)
	return &t, nil
}

func (s *SQLiteDB) queryTranscripts(ctx context.Context, query string, args ...any) ([]Transcript, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Transcript{}
	for rows.Next() {
		t, err := scanSQLiteTranscript(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (s *SQLiteDB) getTranscript(ctx context.Context, id string) (*Transcript, error) {
	return scanSQLiteTranscript(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTranscriptColumns+` FROM transcripts WHERE id = ?`, id))
}

func (s *SQLiteDB) UpsertTranscript(ctx context.Context, t Transcript) (*Transcript, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, meeting_id, speaker, text, "timestamp")
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			text = excluded.text,
			"timestamp" = excluded."timestamp"
	`, t.ID, t.MeetingID, t.Speaker, t.Text, toNanos(t.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("upsert transcript: %w", err)
	}
	return s.getTranscript(ctx, t.ID)
}

func (s *SQLiteDB) InsertTranscript(ctx context.Context, t Transcript) (*Transcript, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, meeting_id, speaker, text, "timestamp")
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.MeetingID, t.Speaker, t.Text, toNanos(t.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		t.Seq = seq
	}
	t.Timestamp = fromNanos(toNanos(t.Timestamp))
	return &t, nil
}

func (s *SQLiteDB) LastTranscript(ctx context.Context, meetingID string) (*Transcript, error) {
	return scanSQLiteTranscript(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteTranscriptColumns+`
		FROM transcripts
		WHERE meeting_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, meetingID))
}

func (s *SQLiteDB) RecentTranscripts(ctx context.Context, meetingID, speaker, excludeID string, since time.Time) ([]Transcript, error) {
	return s.queryTranscripts(ctx, `
		SELECT `+sqliteTranscriptColumns+`
		FROM transcripts
		WHERE meeting_id = ? AND speaker = ? AND id <> ? AND "timestamp" >= ?
		ORDER BY seq
	`, meetingID, speaker, excludeID, toNanos(since))
}

func (s *SQLiteDB) DeleteTranscripts(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transcripts: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) ListTranscripts(ctx context.Context, meetingID string) ([]Transcript, error) {
	return s.queryTranscripts(ctx, `
		SELECT `+sqliteTranscriptColumns+`
		FROM transcripts
		WHERE meeting_id = ?
		ORDER BY "timestamp", seq
	`, meetingID)
}

func (s *SQLiteDB) InsertSummary(ctx context.Context, meetingID, content string) (*Summary, error) {
	sum := Summary{ID: uuid.NewString(), MeetingID: meetingID, Content: content, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, meeting_id, content, created_at) VALUES (?, ?, ?, ?)`,
		sum.ID, sum.MeetingID, sum.Content, toNanos(sum.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return &sum, nil
}

func (s *SQLiteDB) LatestSummary(ctx context.Context, meetingID string) (*Summary, error) {
	var sum Summary
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, meeting_id, content, created_at
		FROM summaries
		WHERE meeting_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, meetingID).Scan(&sum.ID, &sum.MeetingID, &sum.Content, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sum.CreatedAt = fromNanos(created)
	return &sum, nil
}

func (s *SQLiteDB) ListSummaries(ctx context.Context, meetingID string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, content, created_at
		FROM summaries
		WHERE meeting_id = ?
		ORDER BY created_at
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Summary{}
	for rows.Next() {
		var sum Summary
		var created int64
		if err := rows.Scan(&sum.ID, &sum.MeetingID, &sum.Content, &created); err != nil {
			return nil, err
		}
		sum.CreatedAt = fromNanos(created)
		result = append(result, sum)
	}
	return result, rows.Err()
}
