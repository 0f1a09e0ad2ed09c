package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"socialgraph/backend/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	clientBuffer   = 16
)

// Events godoc
// @Summary      Real-time events
// @Description  Upgrades to a websocket that receives {"type", "payload"} frames for the caller. Browsers pass the token as a query parameter.
// @Tags         events
// @Security     BearerAuth
// @Param        token  query  string  false  "Session token"
// @Success      101
// @Failure      401  {object}  ErrorResponse
// @Router       /ws [get]
func (h *Handler) Events(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := make(hub.Client, clientBuffer)
	h.hub.Subscribe(userID, client)
	h.logger.Debug("Websocket connected", "user_id", userID)

	done := make(chan struct{})
	go h.writePump(conn, client, done)
	h.readPump(conn)

	// Unsubscribe closes client, which stops writePump.
	h.hub.Unsubscribe(userID, client)
	<-done
	h.logger.Debug("Websocket disconnected", "user_id", userID)
}

// readPump discards inbound frames and returns when the peer goes away or
// stops answering pings.
func (h *Handler) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client hub.Client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case message, ok := <-client:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
