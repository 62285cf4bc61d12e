package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/halvardsen/pagepool/pkg/bufferpool"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventHub fans out pool events to connected WebSocket clients. It
// implements bufferpool.EventSink, so a ParallelPool publishes
// straight into it.
type EventHub struct {
	mu          sync.RWMutex
	connections map[string]*eventConnection
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{connections: make(map[string]*eventConnection)}
}

// Publish implements bufferpool.EventSink by broadcasting e to every
// connected client. A client whose write fails is dropped. Writes are
// synchronous and carry no deadline, so a client that stops reading
// delays Publish until its write fails.
func (h *EventHub) Publish(e bufferpool.Event) {
	h.mu.RLock()
	conns := make([]*eventConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(e)
	}
}

func (h *EventHub) add(c *eventConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.id] = c
}

func (h *EventHub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

type eventConnection struct {
	id     string
	conn   *websocket.Conn
	cancel context.CancelFunc
	mu     sync.Mutex
}

func (c *eventConnection) send(e bufferpool.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(e); err != nil {
		log.Printf("adminserver: failed to deliver event to %s: %v", c.id, err)
		c.cancel()
	}
}

func (c *eventConnection) sendHeartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(map[string]string{"type": "heartbeat"})
}

// eventsHandler upgrades the request and streams hub events to the
// client until the connection closes.
func (h *EventHub) eventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("adminserver: failed to upgrade /ws/events connection: %v", err)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		id := fmt.Sprintf("ws-%d", time.Now().UnixNano())
		ec := &eventConnection{id: id, conn: conn, cancel: cancel}

		h.add(ec)
		defer func() {
			h.remove(id)
			conn.Close()
		}()

		if err := conn.WriteJSON(map[string]string{"type": "connected"}); err != nil {
			return
		}

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := ec.sendHeartbeat(); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Drain client messages (there is nothing to act on) until the
		// socket closes, so a dropped TCP connection is noticed promptly.
		go func() {
			for {
				var msg json.RawMessage
				if err := conn.ReadJSON(&msg); err != nil {
					cancel()
					return
				}
			}
		}()

		<-ctx.Done()
	}
}
