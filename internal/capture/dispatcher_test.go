package capture

import (
	"sync"
	"testing"
	"time"
)

func frag(id, text string) Fragment {
	return Fragment{StableID: id, Speaker: "Ana", Text: text, Kind: KindExtend}
}

func TestDispatcher(t *testing.T) {
	t.Run("collapses_by_stable_id", func(t *testing.T) {
		clock := newFakeClock()
		batches := make(chan []Fragment, 4)
		d := NewDispatcher(clock, 500*time.Millisecond, func(b []Fragment) { batches <- b })
		defer d.Stop()

		d.Add(frag("u1", "Hel"))
		d.Add(frag("u1", "Hello"))
		d.Add(frag("u2", "Hi"))
		d.Add(frag("u1", "Hello world"))
		clock.Advance(500 * time.Millisecond)

		select {
		case b := <-batches:
			if len(b) != 2 {
				t.Fatalf("batch len = %d, want 2: %+v", len(b), b)
			}
			if b[0].StableID != "u1" || b[0].Text != "Hello world" {
				t.Errorf("batch[0] = %+v, want latest u1 snapshot", b[0])
			}
			if b[1].StableID != "u2" || b[1].Text != "Hi" {
				t.Errorf("batch[1] = %+v, want u2", b[1])
			}
		case <-time.After(time.Second):
			t.Fatal("no batch dispatched")
		}
		if n := d.Pending(); n != 0 {
			t.Errorf("pending after dispatch = %d, want 0", n)
		}
	})

	t.Run("each_add_restarts_window", func(t *testing.T) {
		clock := newFakeClock()
		batches := make(chan []Fragment, 4)
		d := NewDispatcher(clock, 500*time.Millisecond, func(b []Fragment) { batches <- b })
		defer d.Stop()

		d.Add(frag("u1", "a b c"))
		clock.Advance(400 * time.Millisecond)
		d.Add(frag("u2", "d e f"))
		clock.Advance(400 * time.Millisecond)
		if n := d.Pending(); n != 2 {
			t.Fatalf("pending = %d, want 2 before window closes", n)
		}
		if n := clock.active(); n != 1 {
			t.Errorf("active timers = %d, want 1", n)
		}

		clock.Advance(100 * time.Millisecond)
		select {
		case b := <-batches:
			if len(b) != 2 {
				t.Errorf("batch len = %d, want 2", len(b))
			}
		case <-time.After(time.Second):
			t.Fatal("no batch dispatched")
		}
	})

	t.Run("stop_flushes_and_drops_later_adds", func(t *testing.T) {
		clock := newFakeClock()
		var mu sync.Mutex
		var batches [][]Fragment
		d := NewDispatcher(clock, time.Hour, func(b []Fragment) {
			mu.Lock()
			defer mu.Unlock()
			batches = append(batches, b)
		})

		d.Add(frag("u1", "first"))
		d.Stop()
		d.Add(frag("u2", "late"))
		clock.Advance(2 * time.Hour)

		mu.Lock()
		defer mu.Unlock()
		if len(batches) != 1 || len(batches[0]) != 1 || batches[0][0].StableID != "u1" {
			t.Errorf("batches = %+v, want one batch with u1", batches)
		}
	})

	t.Run("flush_sends_immediately", func(t *testing.T) {
		clock := newFakeClock()
		batches := make(chan []Fragment, 4)
		d := NewDispatcher(clock, time.Hour, func(b []Fragment) { batches <- b })
		defer d.Stop()

		d.Flush() // nothing pending
		d.Add(frag("u1", "now"))
		d.Flush()

		select {
		case b := <-batches:
			if len(b) != 1 {
				t.Errorf("batch len = %d, want 1", len(b))
			}
		case <-time.After(time.Second):
			t.Fatal("flush did not dispatch")
		}
		if n := clock.active(); n != 0 {
			t.Errorf("active timers after flush = %d, want 0", n)
		}
	})
}
