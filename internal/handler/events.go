package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sitebuilder-backend/internal/broadcast"
	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/internal/utils"
	"sitebuilder-backend/pkg/logger"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10

	sseHeartbeatInterval = 30 * time.Second
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSInbound struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId,omitempty"`
}

type eventsWSOutbound struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId,omitempty"`
	Path      string `json:"path,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EventsHandler pushes "file changed" signals to preview clients.
type EventsHandler struct {
	hub *broadcast.Hub
}

func NewEventsHandler(hub *broadcast.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// StreamProjectEvents is the SSE variant of the push channel.
func (h *EventsHandler) StreamProjectEvents(c *gin.Context) {
	projectID := c.Param("projectId")
	if !project.ValidID(projectID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	sub := h.hub.Subscribe(projectID)
	defer h.hub.Unsubscribe(sub)

	sseWriter := utils.NewSSEWriter(c.Writer)
	err := sseWriter.WriteJSON("connected", gin.H{
		"type":      "connected",
		"projectId": projectID,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return
	}

	heartbeatTicker := time.NewTicker(sseHeartbeatInterval)
	defer heartbeatTicker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := sseWriter.WriteJSON(evt.Type, evt); err != nil {
				logger.WithProject(projectID, evt.Path).Debugf("sse write failed: %v", err)
				return
			}
		case now := <-heartbeatTicker.C:
			if err := sseWriter.Heartbeat(now); err != nil {
				return
			}
		}
	}
}

// HandleWS is the WebSocket variant of the push channel. The project can be
// chosen with ?projectId= or with a "subscribe" message; subscribing again
// replaces the previous subscription.
func (h *EventsHandler) HandleWS(c *gin.Context) {
	conn, err := eventsWSUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		logger.Warnf("events ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	writeCh := make(chan eventsWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(eventsWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var current *broadcast.Subscription
	subscribe := func(projectID string) {
		if !project.ValidID(projectID) {
			pushEventsWS(writeCh, eventsWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "invalid projectId",
			})
			return
		}
		if current != nil {
			h.hub.Unsubscribe(current)
		}
		sub := h.hub.Subscribe(projectID)
		current = sub
		pushEventsWS(writeCh, eventsWSOutbound{
			Type:      "subscribed",
			ProjectID: projectID,
		})

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-sub.Events():
					if !ok {
						return
					}
					pushEventsWS(writeCh, eventsWSOutbound{
						Type:      evt.Type,
						ProjectID: evt.ProjectID,
						Path:      evt.Path,
						Timestamp: evt.Timestamp,
					})
				}
			}
		}()
	}
	defer func() {
		if current != nil {
			h.hub.Unsubscribe(current)
		}
	}()

	if projectID := strings.TrimSpace(c.Query("projectId")); projectID != "" {
		subscribe(projectID)
	}

	for {
		var in eventsWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "":
			pushEventsWS(writeCh, eventsWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "type is required",
			})
		case "ping":
			pushEventsWS(writeCh, eventsWSOutbound{Type: "pong"})
		case "subscribe":
			subscribe(strings.TrimSpace(in.ProjectID))
		default:
			pushEventsWS(writeCh, eventsWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

// pushEventsWS never blocks; when the queue is full the oldest message is
// dropped.
func pushEventsWS(writeCh chan eventsWSOutbound, out eventsWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
