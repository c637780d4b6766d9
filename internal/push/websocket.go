package push

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Upgrader accepts WebSocket subscriptions from any origin
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS pumps hub updates to conn, one text message per snapshot, until
// the peer disconnects or the hub closes. client must already be registered
// with hub. ServeWS returns once both pumps have stopped.
func ServeWS(conn *websocket.Conn, client *Client, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		readPump(conn, logger)
		close(done)
	}()
	writePump(conn, client, done)
	client.hub.Unregister(client)
	_ = conn.Close()
	<-done
}

// readPump discards client messages and watches for disconnects and pongs
func readPump(conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump writes updates and keepalive pings until the hub closes the
// client's channel, a write fails, or the reader stops
func writePump(conn *websocket.Conn, client *Client, readerDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, update.Payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-readerDone:
			return
		}
	}
}
