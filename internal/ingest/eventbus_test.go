package ingest

import (
	"encoding/json"
	"testing"
	"time"
)

// ── EventBus Publish/Subscribe ────────────────────────────────────────

func TestEventBusPublishSubscribe(t *testing.T) {
	t.Run("subscriber_receives_published_event", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(EventFilter{})
		defer cancel()

		eb.Publish(EventTranscript, "m1", map[string]string{"text": "hello"})

		select {
		case evt := <-ch:
			if evt.Type != EventTranscript {
				t.Errorf("Type = %q, want transcript", evt.Type)
			}
			if evt.MeetingID != "m1" {
				t.Errorf("MeetingID = %q, want m1", evt.MeetingID)
			}
			if evt.ID == "" {
				t.Error("expected non-empty event ID")
			}
			var payload map[string]string
			if err := json.Unmarshal(evt.Data, &payload); err != nil {
				t.Fatalf("Data is not valid JSON: %v", err)
			}
			if payload["text"] != "hello" {
				t.Errorf("payload text = %q, want hello", payload["text"])
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	})

	t.Run("filtered_subscriber_misses_non_matching", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(EventFilter{Types: []string{EventSummary}})
		defer cancel()

		eb.Publish(EventTranscript, "m1", "x")

		select {
		case evt := <-ch:
			t.Fatalf("should not receive event, got %+v", evt)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("meeting_filter", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(EventFilter{MeetingID: "m2"})
		defer cancel()

		eb.Publish(EventTranscript, "m1", "a")
		eb.Publish(EventTranscript, "m2", "b")

		select {
		case evt := <-ch:
			if evt.MeetingID != "m2" {
				t.Errorf("MeetingID = %q, want m2", evt.MeetingID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	})

	t.Run("cancel_stops_delivery", func(t *testing.T) {
		eb := NewEventBus(64)
		ch, cancel := eb.Subscribe(EventFilter{})
		cancel()
		if n := eb.SubscriberCount(); n != 0 {
			t.Fatalf("SubscriberCount = %d after cancel", n)
		}

		eb.Publish(EventTranscript, "m1", "x")

		select {
		case _, ok := <-ch:
			if ok {
				t.Fatal("should not receive event after cancel")
			}
		case <-time.After(50 * time.Millisecond):
		}
	})
}

// ── EventBus ReplaySince ─────────────────────────────────────────────

func TestEventBusReplaySince(t *testing.T) {
	t.Run("replay_all_when_empty_lastID", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventTranscript, "m1", "a")
		eb.Publish(EventSummary, "m1", "b")

		if events := eb.ReplaySince("", EventFilter{}); len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
	})

	t.Run("replay_after_specific_id", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventTranscript, "m1", "a")
		firstID := eb.ReplaySince("", EventFilter{})[0].ID

		eb.Publish(EventSummary, "m1", "b")

		events := eb.ReplaySince(firstID, EventFilter{})
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1 (after first)", len(events))
		}
		if events[0].Type != EventSummary {
			t.Errorf("Type = %q, want summary", events[0].Type)
		}
	})

	t.Run("replay_with_filter", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventTranscript, "m1", "a")
		eb.Publish(EventTranscript, "m2", "b")

		events := eb.ReplaySince("", EventFilter{MeetingID: "m2"})
		if len(events) != 1 || events[0].MeetingID != "m2" {
			t.Fatalf("got %+v, want one m2 event", events)
		}
	})

	t.Run("unknown_lastID_replays_all", func(t *testing.T) {
		eb := NewEventBus(64)
		eb.Publish(EventTranscript, "m1", "a")

		// The id was overwritten by ring wrap; replay everything rather than nothing.
		if events := eb.ReplaySince("nonexistent-id", EventFilter{}); len(events) != 1 {
			t.Fatalf("got %d events, want 1 (fallback replay all)", len(events))
		}
	})

	t.Run("ring_wraps", func(t *testing.T) {
		eb := NewEventBus(2)
		eb.Publish(EventTranscript, "m1", "a")
		eb.Publish(EventTranscript, "m1", "b")
		eb.Publish(EventTranscript, "m1", "c")

		events := eb.ReplaySince("", EventFilter{})
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if string(events[0].Data) != `"b"` || string(events[1].Data) != `"c"` {
			t.Errorf("replay order = %s, %s; want b, c", events[0].Data, events[1].Data)
		}
	})
}

func TestMatchesFilter(t *testing.T) {
	tests := []struct {
		name   string
		event  SSEEvent
		filter EventFilter
		want   bool
	}{
		{"empty_filter_matches_all", SSEEvent{Type: EventTranscript, MeetingID: "m1"}, EventFilter{}, true},
		{"type_match", SSEEvent{Type: EventSummary}, EventFilter{Types: []string{"summary"}}, true},
		{"type_trimmed", SSEEvent{Type: EventSummary}, EventFilter{Types: []string{" summary "}}, true},
		{"type_no_match", SSEEvent{Type: EventTranscript}, EventFilter{Types: []string{"summary"}}, false},
		{"type_multiple_one_matches", SSEEvent{Type: EventTranscriptPruned}, EventFilter{Types: []string{"summary", "transcript_pruned"}}, true},
		{"meeting_match", SSEEvent{Type: EventTranscript, MeetingID: "m1"}, EventFilter{MeetingID: "m1"}, true},
		{"meeting_no_match", SSEEvent{Type: EventTranscript, MeetingID: "m1"}, EventFilter{MeetingID: "m2"}, false},
		{"meeting_and_type", SSEEvent{Type: EventTranscript, MeetingID: "m1"}, EventFilter{MeetingID: "m1", Types: []string{"summary"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesFilter(tt.event, tt.filter); got != tt.want {
				t.Errorf("matchesFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}
