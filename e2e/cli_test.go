package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumm2k/reversi/internal/api"
	"github.com/akumm2k/reversi/internal/factory"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/testutil"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	stateFile  string
	login      string
}

func newCLIRunner(t *testing.T, serverURL, login string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "reversi-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/reversi")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		stateFile:  filepath.Join(t.TempDir(), "game.json"),
		login:      login,
	}
}

// as returns a runner for another player sharing the same binary
func (r *cliRunner) as(t *testing.T, login string) *cliRunner {
	return &cliRunner{
		binaryPath: r.binaryPath,
		serverURL:  r.serverURL,
		stateFile:  filepath.Join(t.TempDir(), "game.json"),
		login:      login,
	}
}

func (r *cliRunner) args(args ...string) []string {
	return append([]string{
		"--server", r.serverURL,
		"--state-file", r.stateFile,
		"--login", r.login,
		"--output", "json",
	}, args...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	cmd := exec.Command(r.binaryPath, r.args(args...)...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) snapshot(t *testing.T, args ...string) snapshotResponse {
	t.Helper()
	output, err := r.run(args...)
	require.NoError(t, err, "output: %s", output)

	var snap snapshotResponse
	require.NoError(t, json.Unmarshal([]byte(output), &snap), "output: %s", output)
	return snap
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server   *api.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := testutil.TestLogger(t, slog.LevelError)

	// Create application
	app, err := factory.New(factory.Config{Logger: logger, BotSearchDepth: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.Start(ctx))

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Registry:       app.Registry,
		GameController: app.GameController,
		BotService:     app.BotService,
		HubManager:     app.HubManager,
		Publisher:      app.Publisher,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, serverCfg, logger)
	server.OnShutdown(app.HubManager.Close)

	// Start server
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/health")

	return &testServer{
		server: server,
		addr:   serverURL,
		shutdown: func() {
			_ = server.Shutdown(context.Background())
			cancel()
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	Login string `json:"login"`
	Disk  string `json:"disk"`
	IsBot bool   `json:"isBot"`
}

type snapshotResponse struct {
	GameID            string          `json:"gameId"`
	Board             [][]int         `json:"board"`
	Status            string          `json:"status"`
	CurrentGamePlayer *playerResponse `json:"currentGamePlayer"`
	GamePlayer1       *playerResponse `json:"gamePlayer1"`
	GamePlayer2       *playerResponse `json:"gamePlayer2"`
	PossibleMoves     []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"possibleMoves"`
	Winner   *playerResponse `json:"winner"`
	LastMove *struct {
		Disk string `json:"disk"`
	} `json:"lastMove"`
	Score struct {
		White int `json:"white"`
		Black int `json:"black"`
	} `json:"score"`
	Version int64 `json:"version"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr, "alice")

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_TwoPlayerGame(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr, "alice")
	bob := alice.as(t, "bob")

	started := alice.snapshot(t, "game", "start")
	assert.Equal(t, "WAITING", started.Status)
	assert.Equal(t, "WHITE", started.GamePlayer1.Disk)
	assert.Empty(t, started.PossibleMoves)

	joined := bob.snapshot(t, "game", "connect", started.GameID)
	assert.Equal(t, "IN_PROGRESS", joined.Status)
	assert.Equal(t, "bob", joined.GamePlayer2.Login)
	assert.Len(t, joined.PossibleMoves, 4)

	// Game and disk come from each player's saved state
	moved := alice.snapshot(t, "game", "move", "2", "4")
	assert.Equal(t, "BLACK", moved.CurrentGamePlayer.Disk)
	assert.Equal(t, 4, moved.Score.White)

	moved = bob.snapshot(t, "game", "move", "2", "3")
	assert.Equal(t, "WHITE", moved.CurrentGamePlayer.Disk)
	assert.Equal(t, int64(4), moved.Version)

	current := alice.snapshot(t, "game", "get")
	assert.Equal(t, moved.Board, current.Board)
}

func TestCLI_ConnectRandom(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr, "alice")
	bob := alice.as(t, "bob")

	output, err := bob.run("game", "connect-random")
	require.Error(t, err)
	assert.Contains(t, output, "NO_AVAILABLE_GAME")

	started := alice.snapshot(t, "game", "start")
	joined := bob.snapshot(t, "game", "connect-random")
	assert.Equal(t, started.GameID, joined.GameID)
	assert.Equal(t, "BLACK", joined.GamePlayer2.Disk)
}

func TestCLI_BotGame(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr, "alice")

	output, err := alice.run("game", "strategies")
	require.NoError(t, err, "output: %s", output)
	var strategies struct {
		Strategies []string `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &strategies))
	assert.ElementsMatch(t, model.ValidBotStrategies(), strategies.Strategies)

	started := alice.snapshot(t, "game", "start-bot", "--strategy", model.BotStrategyMinimax)
	assert.Equal(t, "IN_PROGRESS", started.Status)
	assert.True(t, started.GamePlayer2.IsBot)

	moved := alice.snapshot(t, "game", "move", "2", "4")
	assert.Equal(t, int64(4), moved.Version)
	assert.Equal(t, "BLACK", moved.LastMove.Disk)
	assert.Equal(t, "alice", moved.CurrentGamePlayer.Login)
}

func TestCLI_Watch(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr, "alice")
	bob := alice.as(t, "bob")
	started := alice.snapshot(t, "game", "start")

	for _, transport := range []string{"websocket", "sse"} {
		t.Run(transport, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			args := alice.args("watch", started.GameID, "--json")
			if transport == "sse" {
				args = append(args, "--sse")
			}
			cmd := exec.CommandContext(ctx, alice.binaryPath, args...)
			stdout, err := cmd.StdoutPipe()
			require.NoError(t, err)
			require.NoError(t, cmd.Start())
			defer func() {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
			}()

			reader := bufio.NewReader(stdout)
			line, err := reader.ReadString('\n')
			require.NoError(t, err)

			var snap snapshotResponse
			require.NoError(t, json.Unmarshal([]byte(line), &snap))
			assert.Equal(t, started.GameID, snap.GameID)
			assert.Equal(t, "WAITING", snap.Status)
		})
	}

	// The watcher sees the join
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, alice.binaryPath, alice.args("watch", started.GameID, "--json")...)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	reader := bufio.NewReader(stdout)
	_, err = reader.ReadString('\n')
	require.NoError(t, err)

	bob.snapshot(t, "game", "connect", started.GameID)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	var snap snapshotResponse
	require.NoError(t, json.Unmarshal([]byte(line), &snap))
	assert.Equal(t, "IN_PROGRESS", snap.Status)
	assert.Equal(t, int64(2), snap.Version)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := newCLIRunner(t, ts.addr, "alice")
	bob := alice.as(t, "bob")

	// No login
	anon := alice.as(t, "")
	output, err := anon.run("game", "start")
	assert.Error(t, err)
	assert.Contains(t, output, "login required")

	// Unknown game
	output, err = bob.run("game", "connect", "missing")
	assert.Error(t, err)
	assert.Contains(t, output, "GAME_NOT_FOUND")

	started := alice.snapshot(t, "game", "start")
	bob.snapshot(t, "game", "connect", started.GameID)

	// Out of turn
	output, err = bob.run("game", "move", "2", "3")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_YOUR_TURN")

	// No flips
	output, err = alice.run("game", "move", "0", "0")
	assert.Error(t, err)
	assert.Contains(t, output, "ILLEGAL_MOVE")

	// Nothing saved to move in
	output, err = alice.as(t, "carol").run("game", "move", "2", "4")
	assert.Error(t, err)
	assert.Contains(t, output, "--game and --disk required")
}
