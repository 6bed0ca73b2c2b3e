package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types a browser may send over the socket
const (
	MsgTypeSetName = "set_name"
	MsgTypeRefresh = "refresh"
)

const writeWait = 10 * time.Second

// WSMessage is a message received from the browser
type WSMessage struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// HandleWebSocket upgrades the connection and streams every state change to it
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	updates, unsubscribe := h.service.Subscribe()

	go h.readMessages(conn, unsubscribe)

	defer conn.Close()
	for state := range updates {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(state); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			unsubscribe()
			return
		}
	}
}

// readMessages handles browser messages until the connection goes away
func (h *Handler) readMessages(conn *websocket.Conn, unsubscribe func()) {
	defer unsubscribe()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket error", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("failed to parse websocket message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case MsgTypeSetName:
			h.service.SetName(msg.Name)
		case MsgTypeRefresh:
			go h.service.List(context.Background())
		default:
			h.log.Debug("unknown websocket message type", zap.String("type", msg.Type))
		}
	}
}
