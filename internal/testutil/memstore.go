// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/snarg/notetaker/internal/database"
)

// MemStore is an in-memory database.Store. Set the Err fields to make the
// matching method fail.
type MemStore struct {
	mu          sync.Mutex
	meetings    map[string]database.Meeting
	transcripts []database.Transcript
	summaries   []database.Summary
	seq         int64
	nextID      int

	// Now stamps created_at/started_at. Defaults to time.Now.
	Now func() time.Time

	ErrUpsert        error
	ErrInsert        error
	ErrLast          error
	ErrRecent        error
	ErrDelete        error
	ErrLatestSummary error
	ErrGetMeeting    error
	ErrHealth        error

	// Delay is applied to LatestSummary and GetMeeting to widen race windows.
	Delay time.Duration

	Calls map[string]int
}

var _ database.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		meetings: make(map[string]database.Meeting),
		Now:      time.Now,
		Calls:    make(map[string]int),
	}
}

func (s *MemStore) call(name string) {
	s.Calls[name]++
}

// CallCount returns how many times a method was invoked.
func (s *MemStore) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[name]
}

func (s *MemStore) newID(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

// AddMeeting seeds a meeting with an explicit start time.
func (s *MemStore) AddMeeting(m database.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
}

// AddSummary seeds a summary with an explicit creation time.
func (s *MemStore) AddSummary(sum database.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
}

// Transcripts returns a copy of every stored transcript in insertion order.
func (s *MemStore) Transcripts() []database.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]database.Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

// Summaries returns a copy of every stored summary.
func (s *MemStore) Summaries() []database.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]database.Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

func (s *MemStore) CreateMeeting(_ context.Context, meetURL string) (*database.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("CreateMeeting")
	m := database.Meeting{ID: s.newID("meeting"), MeetURL: meetURL, StartedAt: s.Now()}
	s.meetings[m.ID] = m
	return &m, nil
}

func (s *MemStore) GetMeeting(ctx context.Context, id string) (*database.Meeting, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("GetMeeting")
	if s.ErrGetMeeting != nil {
		return nil, s.ErrGetMeeting
	}
	m, ok := s.meetings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &m, nil
}

func (s *MemStore) ListMeetings(_ context.Context) ([]database.MeetingListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("ListMeetings")
	items := []database.MeetingListItem{}
	for _, m := range s.meetings {
		it := database.MeetingListItem{Meeting: m, Summaries: []database.Summary{}}
		for _, t := range s.transcripts {
			if t.MeetingID == m.ID {
				it.TranscriptCount++
			}
		}
		for _, sum := range s.summaries {
			if sum.MeetingID == m.ID {
				it.Summaries = append(it.Summaries, sum)
			}
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartedAt.After(items[j].StartedAt) })
	return items, nil
}

func (s *MemStore) UpsertTranscript(_ context.Context, t database.Transcript) (*database.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("UpsertTranscript")
	if s.ErrUpsert != nil {
		return nil, s.ErrUpsert
	}
	for i := range s.transcripts {
		if s.transcripts[i].ID == t.ID {
			s.transcripts[i].Text = t.Text
			s.transcripts[i].Timestamp = t.Timestamp
			out := s.transcripts[i]
			return &out, nil
		}
	}
	s.seq++
	t.Seq = s.seq
	s.transcripts = append(s.transcripts, t)
	return &t, nil
}

func (s *MemStore) InsertTranscript(_ context.Context, t database.Transcript) (*database.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("InsertTranscript")
	if s.ErrInsert != nil {
		return nil, s.ErrInsert
	}
	if t.ID == "" {
		t.ID = s.newID("transcript")
	}
	s.seq++
	t.Seq = s.seq
	s.transcripts = append(s.transcripts, t)
	return &t, nil
}

func (s *MemStore) LastTranscript(_ context.Context, meetingID string) (*database.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("LastTranscript")
	if s.ErrLast != nil {
		return nil, s.ErrLast
	}
	var last *database.Transcript
	for i := range s.transcripts {
		t := s.transcripts[i]
		if t.MeetingID == meetingID && (last == nil || t.Seq > last.Seq) {
			last = &t
		}
	}
	if last == nil {
		return nil, database.ErrNotFound
	}
	return last, nil
}

func (s *MemStore) RecentTranscripts(_ context.Context, meetingID, speaker, excludeID string, since time.Time) ([]database.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("RecentTranscripts")
	if s.ErrRecent != nil {
		return nil, s.ErrRecent
	}
	out := []database.Transcript{}
	for _, t := range s.transcripts {
		if t.MeetingID == meetingID && t.Speaker == speaker && t.ID != excludeID && !t.Timestamp.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemStore) DeleteTranscripts(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("DeleteTranscripts")
	if s.ErrDelete != nil {
		return 0, s.ErrDelete
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.transcripts[:0]
	var n int64
	for _, t := range s.transcripts {
		if drop[t.ID] {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.transcripts = kept
	return n, nil
}

func (s *MemStore) ListTranscripts(_ context.Context, meetingID string) ([]database.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("ListTranscripts")
	out := []database.Transcript{}
	for _, t := range s.transcripts {
		if t.MeetingID == meetingID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemStore) InsertSummary(_ context.Context, meetingID, content string) (*database.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("InsertSummary")
	sum := database.Summary{ID: s.newID("summary"), MeetingID: meetingID, Content: content, CreatedAt: s.Now()}
	s.summaries = append(s.summaries, sum)
	return &sum, nil
}

func (s *MemStore) LatestSummary(ctx context.Context, meetingID string) (*database.Summary, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("LatestSummary")
	if s.ErrLatestSummary != nil {
		return nil, s.ErrLatestSummary
	}
	var latest *database.Summary
	for i := range s.summaries {
		sum := s.summaries[i]
		if sum.MeetingID == meetingID && (latest == nil || sum.CreatedAt.After(latest.CreatedAt)) {
			latest = &sum
		}
	}
	if latest == nil {
		return nil, database.ErrNotFound
	}
	return latest, nil
}

func (s *MemStore) ListSummaries(_ context.Context, meetingID string) ([]database.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.call("ListSummaries")
	out := []database.Summary{}
	for _, sum := range s.summaries {
		if sum.MeetingID == meetingID {
			out = append(out, sum)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) HealthCheck(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrHealth
}

func (s *MemStore) Close() {}

func (s *MemStore) sleep(ctx context.Context) error {
	s.mu.Lock()
	d := s.Delay
	s.mu.Unlock()
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
