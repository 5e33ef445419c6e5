// Package broadcast fans out "file changed" signals to viewers of a project.
// Delivery is at-most-once: events are never queued for slow or absent
// subscribers and never replayed.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sitebuilder-backend/pkg/logger"
)

const (
	EventFileUpdated = "file-updated"

	defaultBuffer = 16
)

type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	Path      string `json:"path,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type Subscription struct {
	ID        string
	ProjectID string
	events    chan Event
	once      sync.Once
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription
	buffer int
	closed bool
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[string]*Subscription),
		buffer: defaultBuffer,
		now:    time.Now,
	}
}

func (h *Hub) Subscribe(projectID string) *Subscription {
	sub := &Subscription{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		events:    make(chan Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.close()
		return sub
	}
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[string]*Subscription)
	}
	h.subs[projectID][sub.ID] = sub
	logger.Debugf("subscriber %s joined project %s", sub.ID, projectID)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if set, ok := h.subs[sub.ProjectID]; ok {
		delete(set, sub.ID)
		if len(set) == 0 {
			delete(h.subs, sub.ProjectID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Notify is Publish without the delivery count.
func (h *Hub) Notify(projectID, path string) {
	h.Publish(projectID, path)
}

// Publish sends a file-updated event to current subscribers of projectID and
// returns how many received it. It never blocks; a subscriber whose buffer is
// full misses the event.
func (h *Hub) Publish(projectID, path string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[projectID]
	if len(set) == 0 {
		return 0
	}

	ev := Event{Type: EventFileUpdated, ProjectID: projectID, Path: path, Timestamp: h.now().UnixMilli()}
	delivered := 0
	for _, sub := range set {
		select {
		case sub.events <- ev:
			delivered++
		default:
			logger.Warnf("subscriber %s is slow, dropped %s event for %s", sub.ID, ev.Type, projectID)
		}
	}
	return delivered
}

func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for _, sub := range set {
			sub.close()
		}
	}
	h.subs = make(map[string]map[string]*Subscription)
}
