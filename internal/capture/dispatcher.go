package capture

import (
	"sync"
	"time"
)

// Dispatcher collapses fragments by stable id and hands the latest snapshot
// of each to send once no new fragment has arrived for the debounce window.
type Dispatcher struct {
	mu      sync.Mutex
	pending map[string]Fragment
	order   []string
	send    func([]Fragment)
	timer   *ScheduledTask
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher that calls send with each batch.
func NewDispatcher(clock Clock, debounce time.Duration, send func([]Fragment)) *Dispatcher {
	if clock == nil {
		clock = RealClock()
	}
	d := &Dispatcher{
		pending: make(map[string]Fragment),
		send:    send,
	}
	d.timer = NewScheduledTask(clock, debounce, d.onTimer)
	return d
}

// Add records f as the latest snapshot for its stable id and restarts the
// debounce window.
func (d *Dispatcher) Add(f Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if _, ok := d.pending[f.StableID]; !ok {
		d.order = append(d.order, f.StableID)
	}
	d.pending[f.StableID] = f
	d.timer.Reschedule()
}

// Pending returns the number of stable ids waiting to be sent.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush sends any pending fragments now.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer.Cancel()
	if len(d.pending) > 0 {
		d.flushLocked()
	}
}

// Stop flushes remaining fragments, waits for in-flight sends, and drops
// later adds.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.timer.Cancel()
	if len(d.pending) > 0 {
		d.flushLocked()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) onTimer(token uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.timer.Claim(token) || len(d.pending) == 0 {
		return
	}
	d.flushLocked()
}

func (d *Dispatcher) flushLocked() {
	batch := make([]Fragment, 0, len(d.order))
	for _, id := range d.order {
		batch = append(batch, d.pending[id])
	}
	d.pending = make(map[string]Fragment)
	d.order = nil
	// Send outside the lock so a slow backend never blocks Add.
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(batch)
	}()
}
