package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/akumm2k/reversi/internal/api/handler"
	"github.com/akumm2k/reversi/internal/api/middleware"
	"github.com/akumm2k/reversi/internal/api/response"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/bot"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Registry       *registry.Registry
	GameController *game.Controller
	BotService     *bot.Service
	HubManager     *push.HubManager
	Publisher      push.Publisher
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.Registry, cfg.GameController, cfg.BotService, cfg.Publisher, cfg.Logger)
	pushHandler := handler.NewPushHandler(cfg.Registry, cfg.HubManager, cfg.Logger)

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	games := r.PathPrefix("/game").Subrouter()
	games.HandleFunc("/start", gameHandler.Start).Methods(http.MethodPost)
	games.HandleFunc("/start/bot", gameHandler.StartBot).Methods(http.MethodPost)
	games.HandleFunc("/bot/strategies", gameHandler.Strategies).Methods(http.MethodGet)
	games.HandleFunc("/connect", gameHandler.Connect).Methods(http.MethodPost)
	games.HandleFunc("/connect/random", gameHandler.ConnectRandom).Methods(http.MethodPost)
	games.HandleFunc("/move", gameHandler.Move).Methods(http.MethodPost)
	games.HandleFunc("/{gameId}", gameHandler.Get).Methods(http.MethodGet)

	topics := r.PathPrefix("/topic/game-progress").Subrouter()
	topics.HandleFunc("/{gameId}", pushHandler.WebSocket).Methods(http.MethodGet)
	topics.HandleFunc("/{gameId}/events", pushHandler.Events).Methods(http.MethodGet)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
