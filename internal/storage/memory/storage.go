package memory

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/storage"
)

const shardCount = 32

// entry owns one game. Its mutex serializes every read-modify-write on the game.
type entry struct {
	mu      sync.Mutex
	game    *model.Game
	deleted bool
}

type shard struct {
	mu    sync.RWMutex
	games map[model.GameID]*entry
}

// Storage is an in-memory implementation of the storage interface.
// Games are spread over lock-striped shards so that unrelated games never
// contend on a single lock.
type Storage struct {
	shards [shardCount]*shard
}

// New creates a new in-memory storage instance
func New() *Storage {
	s := &Storage{}
	for i := range s.shards {
		s.shards[i] = &shard{games: make(map[model.GameID]*entry)}
	}
	return s
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) shardFor(id model.GameID) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

func (s *Storage) lookup(id model.GameID) (*entry, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.games[id]
	return e, ok
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	sh := s.shardFor(game.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.games[game.ID]; ok {
		return model.ErrGameExists
	}
	sh.games[game.ID] = &entry{game: game.Clone()}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, model.ErrGameNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, model.ErrGameNotFound
	}
	return e.game.Clone(), nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.Game, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, model.ErrGameNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, model.ErrGameNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	working := e.game.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.game = working
	return working.Clone(), nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.games[id]
	delete(sh.games, id)
	sh.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.deleted = true
		e.mu.Unlock()
	}
	return nil
}

func (s *Storage) ListWaitingGames(ctx context.Context, limit int) ([]*model.Game, error) {
	var entries []*entry
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.games {
			entries = append(entries, e)
		}
		sh.mu.RUnlock()
	}

	var games []*model.Game
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.game.Status == model.StatusWaiting {
			games = append(games, e.game.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(games, func(i, j int) bool { return storage.Less(games[i], games[j]) })
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (s *Storage) PurgeExpired(ctx context.Context, now time.Time, retention storage.Retention) ([]model.GameID, error) {
	var purged []model.GameID
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, e := range sh.games {
			e.mu.Lock()
			if retention.Expired(e.game, now) {
				e.deleted = true
				delete(sh.games, id)
				purged = append(purged, id)
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return purged, nil
}

// Count returns the number of stored games
func (s *Storage) Count() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.games)
		sh.mu.RUnlock()
	}
	return n
}
