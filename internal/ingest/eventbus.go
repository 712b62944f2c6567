package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snarg/notetaker/internal/metrics"
)

// Event types published on the live feed.
const (
	EventTranscript       = "transcript"
	EventTranscriptPruned = "transcript_pruned"
	EventSummary          = "summary"
)

// SSEEvent is one event on the live feed.
type SSEEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	MeetingID string          `json:"meeting_id,omitempty"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventFilter selects events for a subscriber. Zero values match everything.
type EventFilter struct {
	Types     []string
	MeetingID string
}

// EventBus provides pub-sub event distribution for SSE subscribers.
// It maintains a ring buffer for replay on reconnect.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	ring     []SSEEvent
	ringSize int
	ringHead int
	ringMu   sync.RWMutex
}

type subscriber struct {
	ch     chan SSEEvent
	filter EventFilter
}

// NewEventBus creates an event bus with the given ring buffer size.
func NewEventBus(ringSize int) *EventBus {
	if ringSize <= 0 {
		ringSize = 1
	}
	return &EventBus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]SSEEvent, ringSize),
		ringSize:    ringSize,
	}
}

// Subscribe registers a new subscriber and returns a channel and cancel function.
func (eb *EventBus) Subscribe(filter EventFilter) (<-chan SSEEvent, func()) {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	ch := make(chan SSEEvent, 64)
	eb.subscribers[id] = subscriber{ch: ch, filter: filter}
	eb.mu.Unlock()

	cancel := func() {
		eb.mu.Lock()
		delete(eb.subscribers, id)
		eb.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// ReplaySince returns buffered events after lastEventID. When the id is no
// longer in the ring (or empty), every buffered matching event is returned.
func (eb *EventBus) ReplaySince(lastEventID string, filter EventFilter) []SSEEvent {
	eb.ringMu.RLock()
	defer eb.ringMu.RUnlock()

	var all, after []SSEEvent
	found := false
	for i := 0; i < eb.ringSize; i++ {
		e := eb.ring[(eb.ringHead+i)%eb.ringSize]
		if e.ID == "" {
			continue
		}
		if lastEventID != "" && e.ID == lastEventID {
			found = true
			after = after[:0]
			continue
		}
		if !matchesFilter(e, filter) {
			continue
		}
		all = append(all, e)
		if found {
			after = append(after, e)
		}
	}
	if found {
		return after
	}
	return all
}

// Publish sends an event to all matching subscribers and adds it to the ring buffer.
func (eb *EventBus) Publish(eventType, meetingID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	now := time.Now()
	seq := eb.seq.Add(1)
	event := SSEEvent{
		ID:        fmt.Sprintf("%d-%d", now.UnixMilli(), seq),
		Type:      eventType,
		MeetingID: meetingID,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}

	eb.ringMu.Lock()
	eb.ring[eb.ringHead] = event
	eb.ringHead = (eb.ringHead + 1) % eb.ringSize
	eb.ringMu.Unlock()

	metrics.SSEEventsPublishedTotal.Inc()

	eb.mu.RLock()
	for _, sub := range eb.subscribers {
		if matchesFilter(event, sub.filter) {
			select {
			case sub.ch <- event:
			default:
				// Drop if subscriber is slow
			}
		}
	}
	eb.mu.RUnlock()
}

func matchesFilter(e SSEEvent, f EventFilter) bool {
	if f.MeetingID != "" && e.MeetingID != f.MeetingID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if strings.TrimSpace(t) == e.Type {
			return true
		}
	}
	return false
}
