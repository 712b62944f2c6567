package summary

import "sync"

// GenerationLock is the set of meetings with a summarization in flight.
type GenerationLock struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewGenerationLock() *GenerationLock {
	return &GenerationLock{running: make(map[string]struct{})}
}

// TryAcquire adds meetingID if absent and reports whether it did. The check
// and the insert happen under one lock.
func (l *GenerationLock) TryAcquire(meetingID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.running[meetingID]; ok {
		return false
	}
	l.running[meetingID] = struct{}{}
	return true
}

func (l *GenerationLock) Release(meetingID string) {
	l.mu.Lock()
	delete(l.running, meetingID)
	l.mu.Unlock()
}

func (l *GenerationLock) Held(meetingID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[meetingID]
	return ok
}

// InFlight returns the number of meetings currently being summarized.
func (l *GenerationLock) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.running)
}
