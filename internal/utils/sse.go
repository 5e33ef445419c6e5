package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// SSEWriter writes server-sent events. Writes are serialised so a heartbeat
// goroutine can share the writer with the event loop.
type SSEWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w}
}

func (s *SSEWriter) Write(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// WriteJSON sends v as the data of one event.
func (s *SSEWriter) WriteJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Write(event, string(data))
}

// Heartbeat keeps idle connections from being closed by proxies.
func (s *SSEWriter) Heartbeat(now time.Time) error {
	return s.WriteJSON("heartbeat", map[string]any{
		"type":      "heartbeat",
		"timestamp": now.Unix(),
	})
}
