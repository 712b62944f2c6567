package capture

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeBackend struct {
	mu          sync.Mutex
	transcripts []transcriptRequest
	auth        []string
	failIDs     map[string]bool
	meetingID   string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{failIDs: map[string]bool{}, meetingID: "meeting-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/meetings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": b.meetingID})
	})
	mux.HandleFunc("POST /api/transcripts", func(w http.ResponseWriter, r *http.Request) {
		var req transcriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		if b.failIDs[req.ID] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		b.transcripts = append(b.transcripts, req)
		json.NewEncoder(w).Encode(req)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) received() []transcriptRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]transcriptRequest, len(b.transcripts))
	copy(out, b.transcripts)
	return out
}

func TestTransportSendBatch(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.failIDs["u2"] = true

	tr := NewTransport(srv.URL+"/", "s3cret", 5*time.Second, zerolog.Nop())
	tr.SetMeeting("m1")

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr.SendBatch([]Fragment{
		{StableID: "u1", Speaker: "Ana", Text: "Hello", ObservedAt: at, Kind: KindCreate},
		{StableID: "u2", Speaker: "Bob", Text: "Hi", ObservedAt: at, Kind: KindCreate},
		{StableID: "u3", Speaker: "Ana", Text: "Bye", ObservedAt: at, Kind: KindFinalize},
	})

	got := backend.received()
	if len(got) != 2 {
		t.Fatalf("server received %d transcripts, want 2", len(got))
	}
	if got[0].ID != "u1" || got[0].MeetingID != "m1" || got[0].Timestamp != "2026-03-01T09:00:00Z" {
		t.Errorf("first request = %+v", got[0])
	}
	if got[1].ID != "u3" {
		t.Errorf("delivery did not continue past failure: %+v", got[1])
	}

	sent, dropped := tr.Stats()
	if sent != 2 || dropped != 1 {
		t.Errorf("Stats() = %d sent %d dropped, want 2 and 1", sent, dropped)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, h := range backend.auth {
		if h != "Bearer s3cret" {
			t.Errorf("Authorization = %q, want bearer token", h)
		}
	}
}

func TestTransportRegisterMeeting(t *testing.T) {
	backend, srv := newFakeBackend(t)
	backend.meetingID = "abc"
	tr := NewTransport(srv.URL, "", time.Second, zerolog.Nop())

	id, err := tr.RegisterMeeting(t.Context(), "https://meet.example/xyz")
	if err != nil {
		t.Fatalf("RegisterMeeting: %v", err)
	}
	if id != "abc" {
		t.Errorf("id = %q, want abc", id)
	}
}

func TestTransportUnreachable(t *testing.T) {
	tr := NewTransport("http://127.0.0.1:1", "", 200*time.Millisecond, zerolog.Nop())
	tr.SetMeeting("m1")
	tr.SendBatch([]Fragment{{StableID: "u1", Speaker: "Ana", Text: "Hello"}})
	if _, dropped := tr.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}
