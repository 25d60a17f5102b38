package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-breathe/internal/log"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	clients map[*Client]bool
	mu      sync.RWMutex

	broadcast  chan Message
	direct     chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// retain replays the most recent broadcast to each new client.
	retain bool
	latest *Message

	running atomic.Bool
	dropped atomic.Int64
}

// New creates a hub. A nil logger uses the global logger.
func New(name string, logger *slog.Logger) *Hub {
	logger = log.Or(logger)
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		direct:     make(chan delivery, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// NewRetained creates a hub that hands the most recent broadcast to every
// client as soon as it registers, so a preview has a frame to show before
// the next capture.
func NewRetained(name string, logger *slog.Logger) *Hub {
	h := New(name, logger)
	h.retain = true
	return h
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// client queue. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		close(h.done)
		h.running.Store(false)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			if h.latest != nil {
				select {
				case client.send <- *h.latest:
				default:
				}
			}
			h.logger.Debug("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "clients", count)

		case d := <-h.direct:
			// Only the loop closes client queues, so only the loop sends.
			if !h.clients[d.client] {
				continue
			}
			select {
			case d.client.send <- d.msg:
			default:
				h.logger.Debug("client queue full, dropping direct message")
			}

		case message := <-h.broadcast:
			if h.retain {
				msg := message
				h.latest = &msg
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					h.dropped.Add(1)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client. The message is dropped when the
// broadcast queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	msg, err := Encode(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts binary data.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Frame(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many slow clients were disconnected.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}
