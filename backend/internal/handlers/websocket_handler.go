package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/logger"
	ws "github.com/user/nftmarket/backend/internal/websocket"
)

// MarketWSEndpoint streams committed market events and periodic stats.
// The feed is public; clients only read.
func (h *Handler) MarketWSEndpoint(c *websocket.Conn) {
	client := &ws.Client{
		Conn: c,
		Addr: c.RemoteAddr().String(),
		Send: make(chan []byte, 256),
	}

	if !h.hub.Join(client) {
		return
	}
	logger.Debug("websocket connection established", zap.String("addr", client.Addr))

	go writePump(client)

	// Fiber closes the connection once the handler returns, so the read pump
	// runs on this goroutine.
	h.readPump(client)
}

// writePump drains the client's queue until the hub closes it.
func writePump(client *ws.Client) {
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Debug("websocket write failed", zap.String("addr", client.Addr), zap.Error(err))
			return
		}
	}
}

// readPump discards inbound frames and unregisters the client on disconnect.
func (h *Handler) readPump(client *ws.Client) {
	defer h.hub.Leave(client)

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket client disconnected unexpectedly", zap.String("addr", client.Addr), zap.Error(err))
			}
			return
		}
	}
}
