// Package push fans game snapshots out to subscribers of a game's topic.
package push

import (
	"log/slog"
	"sync"
	"time"

	"github.com/akumm2k/reversi/internal/model"
)

// Update is one published game state
type Update struct {
	GameID  model.GameID
	Version int64
	Payload []byte // snapshot JSON
}

type registration struct {
	client  *Client
	initial *Update
	ok      chan bool
}

// Hub manages subscribers for a single game.
// It remembers the newest update it has seen and never forwards an older one,
// so each subscriber observes versions in increasing order.
type Hub struct {
	gameID  model.GameID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// latest is only touched by Run
	latest *Update

	// Channels for managing clients
	register   chan registration
	unregister chan *Client
	broadcast  chan Update
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a game
func NewHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:     gameID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("game_id", string(gameID))),
		register:   make(chan registration),
		unregister: make(chan *Client),
		broadcast:  make(chan Update, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("push hub started")
	for {
		select {
		case reg := <-h.register:
			h.add(reg)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("push client unregistered",
					slog.String("transport", client.transport),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case update := <-h.broadcast:
			if !h.accept(update) {
				h.logger.Debug("push stale update dropped",
					slog.Int64("version", update.Version),
					slog.Int64("latest", h.latest.Version))
				continue
			}
			h.fanOut(update, nil)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("push hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// add registers a client unless the hub is already closing. Run may pick a
// pending registration over a closed done channel, and a client added then
// would be dropped on the next loop.
func (h *Hub) add(reg registration) {
	select {
	case <-h.done:
		reg.ok <- false
		return
	default:
	}

	h.mu.Lock()
	h.clients[reg.client] = true
	clientCount := len(h.clients)
	h.mu.Unlock()
	reg.ok <- true
	h.logger.Info("push client registered",
		slog.String("transport", reg.client.transport),
		slog.Int("total_clients", clientCount))

	if reg.initial != nil && h.accept(*reg.initial) {
		h.fanOut(*reg.initial, reg.client)
	}
	if h.latest != nil {
		h.deliver(reg.client, *h.latest)
	}
}

// accept records update as the latest if it is newer than what was seen
func (h *Hub) accept(update Update) bool {
	if h.latest != nil && update.Version <= h.latest.Version {
		return false
	}
	h.latest = &update
	return true
}

// fanOut delivers update to every client except skip
func (h *Hub) fanOut(update Update, skip *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for client := range h.clients {
		if client == skip {
			continue
		}
		if !h.deliver(client, update) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("push broadcast partial failure",
			slog.Int("sent", len(h.clients)-dropped),
			slog.Int("dropped", dropped))
	}
}

func (h *Hub) deliver(client *Client, update Update) bool {
	select {
	case client.send <- update:
		return true
	default:
		h.logger.Warn("push message dropped - client buffer full",
			slog.String("transport", client.transport))
		return false
	}
}

// Register adds a client to the hub. initial, if not nil, is offered as the
// current state; the client then receives the newest state the hub knows.
// It returns false if the hub has been closed.
func (h *Hub) Register(client *Client, initial *Update) bool {
	reg := registration{client: client, initial: initial, ok: make(chan bool, 1)}
	select {
	case h.register <- reg:
		return <-reg.ok
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast offers an update to all clients
func (h *Hub) Broadcast(update Update) {
	select {
	case h.broadcast <- update:
	case <-h.done:
	default:
		h.logger.Warn("push broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Done is closed when the hub shuts down
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all games
type HubManager struct {
	hubs   map[model.GameID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.GameID]*Hub),
		logger: logger.With(slog.String("component", "push")),
	}
}

// GetOrCreateHub returns the hub for a game, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[gameID]; ok {
		return hub
	}

	hub := NewHub(gameID, m.logger)
	m.hubs[gameID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a game, or nil if it doesn't exist
func (m *HubManager) GetHub(gameID model.GameID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[gameID]
}

// Deliver hands an update to the game's hub. Games nobody watches are skipped.
func (m *HubManager) Deliver(update Update) {
	if hub := m.GetHub(update.GameID); hub != nil {
		hub.Broadcast(update)
	}
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(gameID model.GameID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[gameID]; ok {
		hub.Close()
		delete(m.hubs, gameID)
		m.logger.Info("push hub removed", slog.String("game_id", string(gameID)))
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("push empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// HubCount returns the number of live hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
