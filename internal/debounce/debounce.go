// Package debounce runs a function once a key has been quiet for a fixed delay.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
}

// Debouncer keeps at most one pending timer per key. Triggering a key again
// restarts its timer; other keys are unaffected.
type Debouncer[K comparable] struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[K]*entry
}

func New[K comparable](delay time.Duration) *Debouncer[K] {
	return &Debouncer[K]{
		delay:   delay,
		pending: make(map[K]*entry),
	}
}

func (d *Debouncer[K]) Delay() time.Duration {
	return d.delay
}

// Trigger (re)starts the timer for key. fn runs on its own goroutine after the
// delay unless the key is triggered again or cancelled first.
func (d *Debouncer[K]) Trigger(key K, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	e := &entry{}
	e.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a stopped timer may still have fired; only the current entry runs
		if d.pending[key] != e {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = e
}

// Cancel stops the pending timer for key without running it.
func (d *Debouncer[K]) Cancel(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// CancelFunc cancels every pending key matching pred and returns them.
func (d *Debouncer[K]) CancelFunc(pred func(K) bool) []K {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cancelled []K
	for key, e := range d.pending {
		if !pred(key) {
			continue
		}
		e.timer.Stop()
		delete(d.pending, key)
		cancelled = append(cancelled, key)
	}
	return cancelled
}

// CancelAll stops every pending timer.
func (d *Debouncer[K]) CancelAll() []K {
	return d.CancelFunc(func(K) bool { return true })
}

func (d *Debouncer[K]) Pending(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

func (d *Debouncer[K]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
