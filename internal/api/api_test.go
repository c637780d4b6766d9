package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumm2k/reversi/internal/api"
	"github.com/akumm2k/reversi/internal/api/apierr"
	"github.com/akumm2k/reversi/internal/api/response"
	"github.com/akumm2k/reversi/internal/factory"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/rules"
	"github.com/akumm2k/reversi/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Registry:       app.Registry,
		GameController: app.GameController,
		BotService:     app.BotService,
		HubManager:     app.HubManager,
		Publisher:      app.Publisher,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func snapshotOf(t *testing.T, rr *httptest.ResponseRecorder) response.Snapshot {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var snap response.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func move(disk string, x, y int, gameID string) map[string]any {
	return map[string]any{
		"disk":   disk,
		"coord":  map[string]int{"x": x, "y": y},
		"gameId": gameID,
	}
}

func (ts *testServer) startAndJoin(t *testing.T) string {
	t.Helper()
	snap := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "alice"}))
	snapshotOf(t, ts.request(http.MethodPost, "/game/connect", map[string]any{
		"client": map[string]string{"login": "bob"},
		"gameId": snap.GameID,
	}))
	return snap.GameID
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestStartGame(t *testing.T) {
	ts := newTestServer(t)

	snap := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "  alice "}))

	assert.NotEmpty(t, snap.GameID)
	assert.Equal(t, "WAITING", snap.Status)
	assert.Empty(t, snap.PossibleMoves)
	assert.Equal(t, "alice", snap.GamePlayer1.Login)
	assert.Equal(t, "WHITE", snap.GamePlayer1.Disk)
	assert.Nil(t, snap.GamePlayer2)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, response.Score{White: 2, Black: 2}, snap.Score)
}

func TestStartGameRejectsBadLogin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/game/start", map[string]string{"login": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidLogin, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/game/start", map[string]string{"login": strings.Repeat("x", model.MaxLoginLength+1)})
	assert.Equal(t, apierr.CodeInvalidLogin, errorCode(t, rr))
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/game/move", `{"disk":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/game/move", map[string]string{"disk": "WHITE"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestConnectAndPlay(t *testing.T) {
	ts := newTestServer(t)
	start := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "alice"}))

	joined := snapshotOf(t, ts.request(http.MethodPost, "/game/connect", map[string]any{
		"client": map[string]string{"login": "bob"},
		"gameId": start.GameID,
	}))
	assert.Equal(t, "IN_PROGRESS", joined.Status)
	assert.Equal(t, "BLACK", joined.GamePlayer2.Disk)
	assert.Equal(t, "alice", joined.CurrentGamePlayer.Login)
	assert.Len(t, joined.PossibleMoves, 4)

	played := snapshotOf(t, ts.request(http.MethodPost, "/game/move", move("WHITE", 2, 4, start.GameID)))
	assert.Equal(t, "bob", played.CurrentGamePlayer.Login)
	assert.Equal(t, response.Score{White: 4, Black: 1}, played.Score)
	assert.Equal(t, []model.Coordinate{{X: 3, Y: 4}}, played.LastMove.Flipped)
	assert.Equal(t, int64(3), played.Version)
	assert.Equal(t, 1, played.Board[2][4])

	third := ts.request(http.MethodPost, "/game/connect", map[string]any{
		"client": map[string]string{"login": "carol"},
		"gameId": start.GameID,
	})
	assert.Equal(t, http.StatusConflict, third.Code)
	assert.Equal(t, apierr.CodeSessionFull, errorCode(t, third))
}

func TestMoveErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startAndJoin(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"wrong turn", move("BLACK", 2, 3, id), http.StatusConflict, apierr.CodeNotYourTurn},
		{"no flips", move("WHITE", 0, 0, id), http.StatusUnprocessableEntity, apierr.CodeIllegalMove},
		{"occupied", move("WHITE", 3, 3, id), http.StatusUnprocessableEntity, apierr.CodeIllegalMove},
		{"off board", move("WHITE", 8, 0, id), http.StatusBadRequest, apierr.CodeInvalidCoordinate},
		{"bad disk", move("RED", 2, 4, id), http.StatusBadRequest, apierr.CodeInvalidDisk},
		{"unknown game", move("WHITE", 2, 4, "missing"), http.StatusNotFound, apierr.CodeGameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/game/move", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}

	// Rejected moves leave the game untouched
	snap := snapshotOf(t, ts.request(http.MethodGet, "/game/"+id, nil))
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, model.InitialBoard().Rows(), snap.Board)
}

func TestMoveBeforeOpponentJoins(t *testing.T) {
	ts := newTestServer(t)
	start := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "alice"}))

	rr := ts.request(http.MethodPost, "/game/move", move("WHITE", 2, 4, start.GameID))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameNotInProgress, errorCode(t, rr))
}

func TestConnectUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/game/connect", map[string]any{
		"client": map[string]string{"login": "bob"},
		"gameId": "missing",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, errorCode(t, rr))
}

func TestConnectRandom(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/game/connect/random", map[string]string{"login": "bob"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNoAvailableGame, errorCode(t, rr))

	first := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "alice"}))
	ts.app.MockClock.Advance(time.Second)
	snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "carol"}))

	joined := snapshotOf(t, ts.request(http.MethodPost, "/game/connect/random", map[string]string{"login": "bob"}))
	assert.Equal(t, first.GameID, joined.GameID)
	assert.Equal(t, "IN_PROGRESS", joined.Status)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startAndJoin(t)

	snap := snapshotOf(t, ts.request(http.MethodGet, "/game/"+id, nil))
	assert.Equal(t, id, snap.GameID)
	assert.Equal(t, "IN_PROGRESS", snap.Status)

	rr := ts.request(http.MethodGet, "/game/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBotGame(t *testing.T) {
	ts := newTestServer(t)

	start := snapshotOf(t, ts.request(http.MethodPost, "/game/start/bot", map[string]string{
		"login":    "alice",
		"strategy": model.BotStrategyRandom,
	}))
	assert.Equal(t, "IN_PROGRESS", start.Status)
	require.NotNil(t, start.GamePlayer2)
	assert.True(t, start.GamePlayer2.IsBot)
	assert.Equal(t, "BLACK", start.GamePlayer2.Disk)
	assert.Equal(t, "alice", start.CurrentGamePlayer.Login)

	// The bot answers within the same request
	snap := snapshotOf(t, ts.request(http.MethodPost, "/game/move", move("WHITE", 2, 4, start.GameID)))
	assert.Equal(t, int64(4), snap.Version)
	assert.Equal(t, "BLACK", snap.LastMove.Disk)
	assert.Equal(t, "WHITE", snap.CurrentGamePlayer.Disk)
}

func TestBotGameRejectsUnknownStrategy(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/game/start/bot", map[string]string{"login": "alice", "strategy": "oracle"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeUnknownStrategy, errorCode(t, rr))
}

func TestBotStrategies(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/game/bot/strategies", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Strategies
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.ElementsMatch(t, model.ValidBotStrategies(), resp.Strategies)
}

func postJSON(t *testing.T, url string, body any) response.Snapshot {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap response.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestWebSocketSubscription(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.handler)
	defer server.Close()

	start := postJSON(t, server.URL+"/game/start", map[string]string{"login": "alice"})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/topic/game-progress/" + start.GameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readSnapshot := func() response.Snapshot {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap response.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		return snap
	}

	// Subscribers start from the current state
	initial := readSnapshot()
	assert.Equal(t, int64(1), initial.Version)
	assert.Equal(t, "WAITING", initial.Status)

	postJSON(t, server.URL+"/game/connect", map[string]any{
		"client": map[string]string{"login": "bob"},
		"gameId": start.GameID,
	})
	joined := readSnapshot()
	assert.Equal(t, int64(2), joined.Version)
	assert.Equal(t, "IN_PROGRESS", joined.Status)

	postJSON(t, server.URL+"/game/move", move("WHITE", 2, 4, start.GameID))
	moved := readSnapshot()
	assert.Equal(t, int64(3), moved.Version)
	assert.Equal(t, "BLACK", moved.CurrentGamePlayer.Disk)
}

func TestWebSocketUnknownGame(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/topic/game-progress/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSESubscription(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.handler)
	defer server.Close()

	start := postJSON(t, server.URL+"/game/start", map[string]string{"login": "alice"})

	resp, err := http.Get(server.URL + "/topic/game-progress/" + start.GameID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var event string
	var snap response.Snapshot
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
			break
		}
	}

	assert.Equal(t, "game-progress", event)
	assert.Equal(t, start.GameID, snap.GameID)
	assert.Equal(t, int64(1), snap.Version)
}

// A client that only holds the published snapshot can rebuild the board and
// derive the same possible moves the server sent.
func TestPublishedSnapshotsRebuildPossibleMoves(t *testing.T) {
	ts := newTestServer(t)
	start := snapshotOf(t, ts.request(http.MethodPost, "/game/start", map[string]string{"login": "alice"}))

	hub := ts.app.HubManager.GetOrCreateHub(model.GameID(start.GameID))
	client := push.NewClient(hub, push.TransportSSE)
	require.True(t, hub.Register(client, nil))
	defer hub.Unregister(client)

	published := func() response.Snapshot {
		t.Helper()
		select {
		case update, ok := <-client.Updates():
			require.True(t, ok)
			var snap response.Snapshot
			require.NoError(t, json.Unmarshal(update.Payload, &snap))
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("no snapshot published")
			return response.Snapshot{}
		}
	}

	snapshotOf(t, ts.request(http.MethodPost, "/game/connect", map[string]any{
		"client": map[string]string{"login": "bob"},
		"gameId": start.GameID,
	}))
	snap := published()

	for i := 0; i < 8 && snap.Status == "IN_PROGRESS"; i++ {
		board, err := model.BoardFromRows(snap.Board)
		require.NoError(t, err)
		side, err := model.ParseDisk(snap.CurrentGamePlayer.Disk)
		require.NoError(t, err)

		require.NotEmpty(t, snap.PossibleMoves)
		assert.Equal(t, rules.LegalMoves(board, side), snap.PossibleMoves, "version %d", snap.Version)

		next := snap.PossibleMoves[len(snap.PossibleMoves)-1]
		snapshotOf(t, ts.request(http.MethodPost, "/game/move", move(snap.CurrentGamePlayer.Disk, next.X, next.Y, start.GameID)))

		played := published()
		assert.Equal(t, snap.Version+1, played.Version)
		snap = played
	}
	assert.Equal(t, int64(10), snap.Version)
}
