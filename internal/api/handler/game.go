package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akumm2k/reversi/internal/api/request"
	"github.com/akumm2k/reversi/internal/api/response"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/bot"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/services/registry"
)

// GameHandler handles game endpoints
type GameHandler struct {
	registry  *registry.Registry
	games     *game.Controller
	bots      *bot.Service
	publisher push.Publisher
	logger    *slog.Logger
}

// NewGameHandler creates a new game handler. bots and publisher may be nil.
func NewGameHandler(
	registry *registry.Registry,
	games *game.Controller,
	bots *bot.Service,
	publisher push.Publisher,
	logger *slog.Logger,
) *GameHandler {
	return &GameHandler{
		registry:  registry,
		games:     games,
		bots:      bots,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "game-handler")),
	}
}

// Start handles POST /game/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req request.StartRequest
	if err := request.Decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.registry.Create(r.Context(), req.Login)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.publish(r.Context(), g)
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// StartBot handles POST /game/start/bot
func (h *GameHandler) StartBot(w http.ResponseWriter, r *http.Request) {
	if h.bots == nil {
		WriteError(w, model.ErrUnknownStrategy)
		return
	}

	var req request.StartBotRequest
	if err := request.Decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.bots.StartGame(r.Context(), req.Login, req.Strategy)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.publish(r.Context(), g)
	g = h.processBotActions(r.Context(), g)
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// Strategies handles GET /game/bot/strategies
func (h *GameHandler) Strategies(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	if h.bots != nil {
		names = append(names, h.bots.Strategies()...)
	}
	response.JSON(w, http.StatusOK, response.Strategies{Strategies: names})
}

// Connect handles POST /game/connect
func (h *GameHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req request.ConnectRequest
	if err := request.Decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.registry.Connect(r.Context(), model.GameID(req.GameID), req.Client.Login)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.publish(r.Context(), g)
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// ConnectRandom handles POST /game/connect/random
func (h *GameHandler) ConnectRandom(w http.ResponseWriter, r *http.Request) {
	var req request.ConnectRandomRequest
	if err := request.Decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.registry.ConnectRandom(r.Context(), req.Login)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.publish(r.Context(), g)
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// Move handles POST /game/move
func (h *GameHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req request.MoveRequest
	if err := request.Decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	disk, err := model.ParseDisk(req.Disk)
	if err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.games.Move(r.Context(), model.GameID(req.GameID), disk, *req.Coord)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.publish(r.Context(), g)
	g = h.processBotActions(r.Context(), g)
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// Get handles GET /game/{gameId}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["gameId"])

	g, err := h.registry.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SnapshotFromModel(g))
}

// processBotActions lets any bot in g reply, publishing each move.
// It returns the newest state.
func (h *GameHandler) processBotActions(ctx context.Context, g *model.Game) *model.Game {
	if h.bots == nil || g.Status != model.StatusInProgress {
		return g
	}

	played, err := h.bots.Play(ctx, g.ID)
	for _, next := range played {
		h.publish(ctx, next)
		g = next
	}
	if err != nil {
		h.logger.Error("bot play failed",
			slog.String("game_id", string(g.ID)),
			slog.String("error", err.Error()))
	}
	return g
}

// publish sends the snapshot of g to its subscribers
func (h *GameHandler) publish(ctx context.Context, g *model.Game) {
	if h.publisher == nil {
		return
	}

	update, err := SnapshotUpdate(g)
	if err != nil {
		h.logger.Error("snapshot encode failed", slog.String("error", err.Error()))
		return
	}
	if err := h.publisher.Publish(ctx, update); err != nil {
		h.logger.Error("publish failed",
			slog.String("game_id", string(g.ID)),
			slog.Int64("version", g.Version),
			slog.String("error", err.Error()))
	}
}

// SnapshotUpdate encodes g as a push update
func SnapshotUpdate(g *model.Game) (push.Update, error) {
	payload, err := json.Marshal(response.SnapshotFromModel(g))
	if err != nil {
		return push.Update{}, err
	}
	return push.Update{GameID: g.ID, Version: g.Version, Payload: payload}, nil
}
