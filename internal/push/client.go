package push

import (
	"time"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Time between keepalive pings. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a WebSocket peer
	maxMessageSize = 512

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Client is one subscriber to a game's updates
type Client struct {
	hub         *Hub
	transport   string
	send        chan Update
	connectedAt time.Time
}

// NewClient creates a new client for hub
func NewClient(hub *Hub, transport string) *Client {
	return &Client{
		hub:         hub,
		transport:   transport,
		send:        make(chan Update, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Updates returns the channel of updates for this client. It is closed when
// the client is unregistered or the hub shuts down.
func (c *Client) Updates() <-chan Update {
	return c.send
}
