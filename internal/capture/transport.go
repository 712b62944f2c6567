package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Transport delivers fragments to the ingestion server.
type Transport struct {
	baseURL   string
	token     string
	meetingID string
	client    *http.Client
	log       zerolog.Logger

	sent    atomic.Int64
	dropped atomic.Int64
}

type transcriptRequest struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewTransport creates a transport for baseURL. token, when set, is sent as a
// bearer token.
func NewTransport(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Transport {
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "transport").Logger(),
	}
}

// SetMeeting sets the meeting id attached to every fragment.
func (t *Transport) SetMeeting(id string) {
	t.meetingID = id
}

// RegisterMeeting creates a meeting on the server and returns its id.
func (t *Transport) RegisterMeeting(ctx context.Context, meetURL string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := t.post(ctx, "/api/meetings", map[string]string{"meet_url": meetURL}, &out); err != nil {
		return "", fmt.Errorf("register meeting: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("register meeting: empty id in response")
	}
	return out.ID, nil
}

// SendBatch posts each fragment in order. A failed post is logged and
// dropped; the next revision of the same utterance supersedes it.
func (t *Transport) SendBatch(batch []Fragment) {
	ctx := context.Background()
	for _, f := range batch {
		req := transcriptRequest{
			ID:        f.StableID,
			MeetingID: t.meetingID,
			Speaker:   f.Speaker,
			Text:      f.Text,
			Timestamp: f.ObservedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := t.post(ctx, "/api/transcripts", req, nil); err != nil {
			t.dropped.Add(1)
			t.log.Warn().Err(err).
				Str("stable_id", f.StableID).
				Str("kind", f.Kind.String()).
				Msg("fragment delivery failed, dropping")
			continue
		}
		t.sent.Add(1)
	}
}

// Stats returns delivered and dropped fragment counts.
func (t *Transport) Stats() (sent, dropped int64) {
	return t.sent.Load(), t.dropped.Load()
}

func (t *Transport) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
