package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/objectql/objectos-sub004/internal/event"
	"github.com/objectql/objectos-sub004/system/core"
)

// streamedTopics is every bus topic the websocket stream fans out. Gate
// topics are deliberately excluded: subscribing an external client to a
// topic whose handlers can abort the mutation would let stream consumers
// observe decisions before they are final.
var streamedTopics = []string{
	event.TopicCreate, event.TopicUpdate, event.TopicDelete, event.TopicFind,
	event.TopicJobEnqueued, event.TopicJobScheduled, event.TopicJobStarted,
	event.TopicJobCompleted, event.TopicJobFailed, event.TopicJobRetried, event.TopicJobCancelled,
	event.TopicAuditRecorded,
}

// streamMessage is one event.* frame pushed to a connected client.
type streamMessage struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// eventHub fans out bus events (spec.md §2's Event/Hook Bus) to every
// connected GET /api/v1/events/stream client, a supplemental real-time
// extension of the bus, not itself part of the kernel's core contract.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan streamMessage]struct{}
	unhooks []func()
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[chan streamMessage]struct{})}
}

func (h *eventHub) subscribe(bus *core.Bus) {
	if bus == nil {
		return
	}
	for _, topic := range streamedTopics {
		t := topic
		unhook, err := bus.Hook(t, func(_ context.Context, payload any) error {
			h.broadcast(t, payload)
			return nil
		})
		if err == nil {
			h.unhooks = append(h.unhooks, unhook)
		}
	}
}

func (h *eventHub) broadcast(topic string, payload any) {
	msg := streamMessage{Topic: topic, Payload: payload, Timestamp: time.Now()}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Slow consumer; drop the frame rather than block the bus's
			// single dispatch goroutine.
		}
	}
}

func (h *eventHub) register() chan streamMessage {
	ch := make(chan streamMessage, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unregister(ch chan streamMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleEventStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.hub.register()
	defer s.hub.unregister(ch)

	for msg := range ch {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
