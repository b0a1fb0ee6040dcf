package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// Client represents a single WebSocket client connection.
type Client struct {
	Conn *websocket.Conn
	Addr string
	Send chan []byte // Buffered channel for outbound messages
}

// Message is the envelope written to clients.
type Message struct {
	Kind string      `json:"kind"` // "event" or "stats"
	Data interface{} `json:"data"`
}

// Hub manages WebSocket clients and broadcasts market messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates and initializes a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	logger.Info("starting websocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("websocket client registered", zap.String("addr", client.Addr))

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				logger.Debug("websocket client unregistered", zap.String("addr", client.Addr))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client's send buffer is full, drop it
					logger.Warn("websocket client send buffer full, closing", zap.String("addr", client.Addr))
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Join registers c unless the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters c. It is a no-op once the hub has stopped.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts a committed ledger event. It never blocks the ledger.
func (h *Hub) Publish(ev models.Event) {
	h.send(Message{Kind: "event", Data: ev})
}

// PublishStats broadcasts a market summary.
func (h *Hub) PublishStats(stats models.MarketStats) {
	h.send(Message{Kind: "stats", Data: stats})
}

func (h *Hub) send(msg Message) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Error("error marshalling websocket message", zap.String("kind", msg.Kind), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msgBytes:
	default:
		logger.Warn("websocket broadcast channel full, dropping message", zap.String("kind", msg.Kind))
	}
}
