package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/storage"
)

// ErrTooManyConflicts is returned when UpdateGame keeps losing optimistic transactions
var ErrTooManyConflicts = errors.New("redis: too many concurrent updates")

// minTTL keeps a key alive long enough for PurgeExpired to report it
const minTTL = time.Minute

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client returns the underlying client, shared with the push relay
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	key := gameKey(game.ID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrGameExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, game, data)
			return nil
		})
		return err
	}, key)

	// Someone else created the same key between WATCH and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrGameExists
	}
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return decode(data)
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.Game, error) {
	key := gameKey(id)

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		var committed *model.Game
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrGameNotFound
				}
				return err
			}
			game, err := decode(data)
			if err != nil {
				return err
			}
			if err := fn(game); err != nil {
				return err
			}
			encoded, err := json.Marshal(game)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.write(ctx, pipe, game, encoded)
				return nil
			})
			if err != nil {
				return err
			}
			committed = game
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return committed, nil
	}
	return nil, fmt.Errorf("update game %s: %w", id, ErrTooManyConflicts)
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, gameKey(id))
	pipe.ZRem(ctx, gamesIndexKey(), string(id))
	pipe.ZRem(ctx, waitingIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListWaitingGames(ctx context.Context, limit int) ([]*model.Game, error) {
	ids, err := s.client.ZRange(ctx, waitingIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	games, stale, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, waitingIndexKey(), members(stale)...).Err()
	}

	waiting := games[:0]
	for _, g := range games {
		if g.Status == model.StatusWaiting {
			waiting = append(waiting, g)
		}
	}
	sort.Slice(waiting, func(i, j int) bool { return storage.Less(waiting[i], waiting[j]) })
	if limit > 0 && len(waiting) > limit {
		waiting = waiting[:limit]
	}
	return waiting, nil
}

func (s *Storage) PurgeExpired(ctx context.Context, now time.Time, retention storage.Retention) ([]model.GameID, error) {
	ids, err := s.client.ZRange(ctx, gamesIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	games, stale, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		pipe := s.client.TxPipeline()
		pipe.ZRem(ctx, gamesIndexKey(), members(stale)...)
		pipe.ZRem(ctx, waitingIndexKey(), members(stale)...)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	var purged []model.GameID
	for _, g := range games {
		if !retention.Expired(g, now) {
			continue
		}
		ok, err := s.purge(ctx, g.ID, now, retention)
		if err != nil {
			return purged, fmt.Errorf("purge game %s: %w", g.ID, err)
		}
		if ok {
			purged = append(purged, g.ID)
		}
	}
	return purged, nil
}

// purge deletes one game if it is still expired when re-read under WATCH.
// A game changed by a concurrent UpdateGame is kept for the next pass.
func (s *Storage) purge(ctx context.Context, id model.GameID, now time.Time, retention storage.Retention) (bool, error) {
	key := gameKey(id)
	deleted := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			game, err := decode(data)
			if err != nil {
				return err
			}
			if !retention.Expired(game, now) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, gamesIndexKey(), string(id))
			pipe.ZRem(ctx, waitingIndexKey(), string(id))
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return deleted, err
}

// write queues the game blob and its index entries on pipe
func (s *Storage) write(ctx context.Context, pipe redis.Pipeliner, game *model.Game, data []byte) {
	member := redis.Z{Score: float64(game.CreatedAt.UnixMilli()), Member: string(game.ID)}

	pipe.Set(ctx, gameKey(game.ID), data, s.ttl(game))
	pipe.ZAdd(ctx, gamesIndexKey(), member)
	if game.Status == model.StatusWaiting {
		pipe.ZAdd(ctx, waitingIndexKey(), member)
	} else {
		pipe.ZRem(ctx, waitingIndexKey(), string(game.ID))
	}
}

// ttl is the retention window of the game's status, with a floor so
// that the key outlives the logical expiry check
func (s *Storage) ttl(game *model.Game) time.Duration {
	window := s.cfg.Retention.For(game.Status)
	if window <= 0 {
		return 0
	}
	return window + minTTL
}

// load fetches the games for ids, returning the ids whose keys are gone
func (s *Storage) load(ctx context.Context, ids []string) ([]*model.Game, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	var games []*model.Game
	var stale []string
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		game, err := decode([]byte(str))
		if err != nil {
			return nil, nil, err
		}
		games = append(games, game)
	}
	return games, stale, nil
}

func members(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func decode(data []byte) (*model.Game, error) {
	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}
