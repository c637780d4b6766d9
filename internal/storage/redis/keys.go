package redis

import (
	"fmt"

	"github.com/akumm2k/reversi/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "reversi"

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamesIndexKey returns the Redis key for the ZSET of all game ids, scored by creation time
func gamesIndexKey() string {
	return fmt.Sprintf("%s:idx:games", keyPrefix)
}

// waitingIndexKey returns the Redis key for the ZSET of WAITING game ids, scored by creation time
func waitingIndexKey() string {
	return fmt.Sprintf("%s:idx:waiting", keyPrefix)
}
