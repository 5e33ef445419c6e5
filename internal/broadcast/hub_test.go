package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyReachesOnlyProjectSubscribers(t *testing.T) {
	h := NewHub()
	h.now = func() time.Time { return time.UnixMilli(42) }

	a := h.Subscribe("project-a")
	b := h.Subscribe("project-b")

	assert.Equal(t, 1, h.Publish("project-a", "index.html"))

	select {
	case ev := <-a.Events():
		assert.Equal(t, Event{Type: EventFileUpdated, ProjectID: "project-a", Path: "index.html", Timestamp: 42}, ev)
	default:
		t.Fatal("expected an event")
	}
	select {
	case ev := <-b.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestNotifyUnknownProjectIsNoop(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.Publish("nobody-watches", "a.css"))
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	h.buffer = 1
	sub := h.Subscribe("p")

	assert.Equal(t, 1, h.Publish("p", "one"))
	assert.Equal(t, 0, h.Publish("p", "two"))

	ev := <-sub.Events()
	assert.Equal(t, "one", ev.Path)
	select {
	case ev := <-sub.Events():
		t.Fatalf("dropped event was delivered: %+v", ev)
	default:
	}
}

func TestNoReplayAfterResubscribe(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("p")
	h.Unsubscribe(sub)
	_, open := <-sub.Events()
	assert.False(t, open)

	h.Notify("p", "missed.html")
	again := h.Subscribe("p")
	select {
	case ev := <-again.Events():
		t.Fatalf("missed event replayed: %+v", ev)
	default:
	}
	assert.Equal(t, 1, h.Subscribers("p"))
}

func TestCloseEndsSubscriptions(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("p")
	h.Close()
	h.Close()

	_, open := <-sub.Events()
	assert.False(t, open)

	late := h.Subscribe("p")
	_, open = <-late.Events()
	require.False(t, open)
	assert.Equal(t, 0, h.Publish("p", "x"))

	h.Unsubscribe(sub)
}
