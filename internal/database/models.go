package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Meeting is a capture session registered by the capture agent.
type Meeting struct {
	ID        string    `json:"id"`
	MeetURL   string    `json:"meet_url"`
	StartedAt time.Time `json:"started_at"`
}

// Transcript is one persisted caption record. ID is either the capture
// agent's stable id (idempotent upsert) or server-assigned.
type Transcript struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"-"` // insertion order
}

// Summary is an LLM-generated meeting summary.
type Summary struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MeetingListItem is a meeting row for the list endpoint.
type MeetingListItem struct {
	Meeting
	TranscriptCount int       `json:"transcript_count"`
	Summaries       []Summary `json:"summaries"`
}

// MeetingDetail is a meeting with its full transcript and summaries.
type MeetingDetail struct {
	Meeting
	Transcripts []Transcript `json:"transcripts"`
	Summaries   []Summary    `json:"summaries"`
}

// Store is the persistence interface shared by the PostgreSQL and SQLite backends.
type Store interface {
	CreateMeeting(ctx context.Context, meetURL string) (*Meeting, error)
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	ListMeetings(ctx context.Context) ([]MeetingListItem, error)

	// UpsertTranscript creates the record if its id is absent, otherwise
	// overwrites text and timestamp. Speaker and meeting are kept from the
	// first write.
	UpsertTranscript(ctx context.Context, t Transcript) (*Transcript, error)
	// InsertTranscript inserts a new record with a server-assigned id.
	InsertTranscript(ctx context.Context, t Transcript) (*Transcript, error)
	// LastTranscript returns the most recently inserted record for a meeting.
	LastTranscript(ctx context.Context, meetingID string) (*Transcript, error)
	// RecentTranscripts returns records for meeting+speaker with timestamp >= since,
	// excluding excludeID.
	RecentTranscripts(ctx context.Context, meetingID, speaker, excludeID string, since time.Time) ([]Transcript, error)
	DeleteTranscripts(ctx context.Context, ids []string) (int64, error)
	// ListTranscripts returns a meeting's records ordered by timestamp.
	ListTranscripts(ctx context.Context, meetingID string) ([]Transcript, error)

	InsertSummary(ctx context.Context, meetingID, content string) (*Summary, error)
	LatestSummary(ctx context.Context, meetingID string) (*Summary, error)
	ListSummaries(ctx context.Context, meetingID string) ([]Summary, error)

	HealthCheck(ctx context.Context) error
	Close()
}
