package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/akumm2k/reversi/internal/model"
)

// Publisher sends an update to every subscriber of its game
type Publisher interface {
	Publish(ctx context.Context, update Update) error
}

// LocalPublisher delivers updates to the hubs of this process
type LocalPublisher struct {
	hubs *HubManager
}

// NewLocalPublisher creates a publisher for a single server instance
func NewLocalPublisher(hubs *HubManager) *LocalPublisher {
	return &LocalPublisher{hubs: hubs}
}

// Publish hands update to the game's hub
func (p *LocalPublisher) Publish(ctx context.Context, update Update) error {
	p.hubs.Deliver(update)
	return nil
}

// channelPrefix is the Redis pub/sub channel prefix for game progress
const channelPrefix = "reversi:game-progress:"

// Channel returns the Redis pub/sub channel for a game
func Channel(id model.GameID) string {
	return channelPrefix + string(id)
}

type envelope struct {
	GameID  model.GameID    `json:"gameId"`
	Version int64           `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// RedisPublisher publishes updates on Redis so that every server instance
// running a Relay delivers them to its own subscribers
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher backed by Redis pub/sub
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends update on the game's channel
func (p *RedisPublisher) Publish(ctx context.Context, update Update) error {
	data, err := json.Marshal(envelope{
		GameID:  update.GameID,
		Version: update.Version,
		Payload: update.Payload,
	})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, Channel(update.GameID), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", update.GameID, err)
	}
	return nil
}

// Relay forwards updates published on Redis to local hubs
type Relay struct {
	client *redis.Client
	hubs   *HubManager
	logger *slog.Logger
}

// NewRelay creates a relay into hubs
func NewRelay(client *redis.Client, hubs *HubManager, logger *slog.Logger) *Relay {
	return &Relay{
		client: client,
		hubs:   hubs,
		logger: logger.With(slog.String("component", "push-relay")),
	}
}

// Start subscribes to every game channel and forwards messages until ctx is
// done. It returns once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to game progress: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.forward(msg)
			}
		}
	}()

	r.logger.Info("push relay subscribed", slog.String("pattern", channelPrefix+"*"))
	return nil
}

func (r *Relay) forward(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.Warn("push relay dropped malformed message",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()))
		return
	}
	if env.GameID == "" {
		env.GameID = model.GameID(strings.TrimPrefix(msg.Channel, channelPrefix))
	}
	r.hubs.Deliver(Update{GameID: env.GameID, Version: env.Version, Payload: env.Payload})
}
