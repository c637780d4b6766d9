package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/rules"
	redisstorage "github.com/akumm2k/reversi/internal/storage/redis"
	"github.com/akumm2k/reversi/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

// Test: two humans meet through the random queue and trade moves
func (s *IntegrationSuite) TestHumanGameFlow() {
	s.app.MockRandom.QueueUUID("game-1")

	created, err := s.app.Registry.Create(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), created.ID)
	s.Equal(model.StatusWaiting, created.Status)

	joined, err := s.app.Registry.ConnectRandom(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(created.ID, joined.ID)
	s.Equal(model.StatusInProgress, joined.Status)
	s.Equal("bob", joined.Player2.Login)

	g, err := s.app.GameController.Move(s.ctx, "game-1", model.White, model.Coordinate{X: 2, Y: 4})
	s.Require().NoError(err)
	s.Equal(model.Black, g.CurrentTurn)

	// Black replies by flipping (3,3)
	g, err = s.app.GameController.Move(s.ctx, "game-1", model.Black, model.Coordinate{X: 2, Y: 3})
	s.Require().NoError(err)
	s.Equal(model.White, g.CurrentTurn)
	s.Equal(int64(4), g.Version)
	s.Equal([]model.Coordinate{{X: 3, Y: 3}}, g.LastMove.Flipped)
	s.Equal(3, g.Board.Count(model.White))
	s.Equal(3, g.Board.Count(model.Black))

	_, err = s.app.GameController.Move(s.ctx, "game-1", model.Black, model.Coordinate{X: 5, Y: 5})
	s.ErrorIs(err, model.ErrNotYourTurn)
}

// Test: a human plays a bot to the end
func (s *IntegrationSuite) TestBotGameRunsToCompletion() {
	for _, strategy := range model.ValidBotStrategies() {
		s.Run(strategy, func() {
			g, err := s.app.BotService.StartGame(s.ctx, "alice", strategy)
			s.Require().NoError(err)
			s.True(g.Player2.IsBot)

			for i := 0; i < 2*model.BoardSize*model.BoardSize && g.Status == model.StatusInProgress; i++ {
				if g.CurrentTurn == model.White {
					moves := rules.LegalMoves(g.Board, model.White)
					s.Require().NotEmpty(moves)
					g, err = s.app.GameController.Move(s.ctx, g.ID, model.White, moves[0])
					s.Require().NoError(err)
				}

				played, err := s.app.BotService.Play(s.ctx, g.ID)
				s.Require().NoError(err)
				if len(played) > 0 {
					g = played[len(played)-1]
				}
			}

			s.Equal(model.StatusFinished, g.Status)
			white, black := g.Board.Count(model.White), g.Board.Count(model.Black)
			switch {
			case white > black:
				s.Equal("alice", g.Winner.Login)
			case black > white:
				s.True(g.Winner.IsBot)
			default:
				s.True(g.IsDraw())
			}
		})
	}
}

// Test: subscribers see every published snapshot in order
func (s *IntegrationSuite) TestPublishedSnapshotsReachSubscribers() {
	s.app.MockRandom.QueueUUID("game-1")
	_, err := s.app.Registry.Create(s.ctx, "alice")
	s.Require().NoError(err)

	hub := s.app.HubManager.GetOrCreateHub("game-1")
	client := push.NewClient(hub, push.TransportSSE)
	s.Require().True(hub.Register(client, nil))

	g, err := s.app.Registry.Connect(s.ctx, "game-1", "bob")
	s.Require().NoError(err)
	s.Require().NoError(s.app.Publisher.Publish(s.ctx, push.Update{GameID: g.ID, Version: g.Version, Payload: []byte(`{}`)}))

	select {
	case update := <-client.Updates():
		s.Equal(g.Version, update.Version)
	case <-time.After(2 * time.Second):
		s.Fail("no update delivered")
	}
}

// Test: purged games lose their hubs
func (s *IntegrationSuite) TestPurgeRemovesHubs() {
	s.app.MockRandom.QueueUUID("stale")
	_, err := s.app.Registry.Create(s.ctx, "alice")
	s.Require().NoError(err)

	hub := s.app.HubManager.GetOrCreateHub("stale")
	s.app.MockClock.Advance(time.Hour)

	ids, err := s.app.Registry.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.GameID{"stale"}, ids)

	s.app.OnPurge(ids)
	s.Equal(0, s.app.HubManager.HubCount())

	select {
	case <-hub.Done():
	default:
		s.Fail("hub still running")
	}

	_, err = s.app.Registry.Get(s.ctx, "stale")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(Config{StorageType: "postgres"})
	assert.Error(t, err)

	_, err = New(Config{StorageType: StorageTypeRedis})
	assert.Error(t, err)
}

func TestNewRedisBackedApp(t *testing.T) {
	mini := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(Config{
		Logger:      testutil.NopLogger(),
		StorageType: StorageTypeRedis,
		RedisConfig: &redisCfg,
	})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()
	require.NoError(t, app.Start(ctx))

	g, err := app.Registry.Create(ctx, "alice")
	require.NoError(t, err)

	hub := app.HubManager.GetOrCreateHub(g.ID)
	client := push.NewClient(hub, push.TransportWebSocket)
	require.True(t, hub.Register(client, nil))

	// Delivery goes through Redis pub/sub and back through the relay
	require.NoError(t, app.Publisher.Publish(ctx, push.Update{GameID: g.ID, Version: g.Version, Payload: []byte(`{"v":1}`)}))

	select {
	case update := <-client.Updates():
		assert.Equal(t, g.Version, update.Version)
		assert.JSONEq(t, `{"v":1}`, string(update.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no update relayed")
	}

	got, err := app.Registry.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Player1.Login)
}
