package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/registry"
)

// registerAttempts bounds retries when a hub closes during registration
const registerAttempts = 3

// PushHandler serves game-progress subscriptions
type PushHandler struct {
	registry *registry.Registry
	hubs     *push.HubManager
	logger   *slog.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(registry *registry.Registry, hubs *push.HubManager, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		registry: registry,
		hubs:     hubs,
		logger:   logger.With(slog.String("component", "push-handler")),
	}
}

// WebSocket handles GET /topic/game-progress/{gameId}
func (h *PushHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["gameId"])

	initial, err := h.current(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	conn, err := push.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client, ok := h.subscribe(r.Context(), id, push.TransportWebSocket, initial)
	if !ok {
		_ = conn.Close()
		return
	}
	push.ServeWS(conn, client, h.logger)
}

// Events handles GET /topic/game-progress/{gameId}/events
func (h *PushHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["gameId"])

	initial, err := h.current(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	client, ok := h.subscribe(r.Context(), id, push.TransportSSE, initial)
	if !ok {
		WriteError(w, NewInternalError())
		return
	}
	push.ServeSSE(w, r, client, h.logger)
}

// current loads the game's snapshot for a new subscriber
func (h *PushHandler) current(ctx context.Context, id model.GameID) (*push.Update, error) {
	g, err := h.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	update, err := SnapshotUpdate(g)
	if err != nil {
		return nil, err
	}
	return &update, nil
}

// subscribe registers a new client with the game's hub.
// The game is re-read once registered so a transition committed in between
// still reaches the client.
func (h *PushHandler) subscribe(ctx context.Context, id model.GameID, transport string, initial *push.Update) (*push.Client, bool) {
	for range registerAttempts {
		hub := h.hubs.GetOrCreateHub(id)
		client := push.NewClient(hub, transport)
		if !hub.Register(client, initial) {
			continue
		}
		if latest, err := h.current(ctx, id); err == nil {
			hub.Broadcast(*latest)
		}
		return client, true
	}
	h.logger.Warn("push subscribe failed", slog.String("game_id", string(id)))
	return nil, false
}
