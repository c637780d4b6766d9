package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Login     string
	StateFile string
	Output    string
	Verbose   bool
}

// State remembers the game this CLI last started or joined
type State struct {
	GameID string `json:"gameId"`
	Disk   string `json:"disk"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("REVERSI_SERVER", "http://localhost:8080"),
		Login:     os.Getenv("REVERSI_LOGIN"),
		StateFile: getEnvOrDefault("REVERSI_STATE_FILE", defaultStateFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// LoadState reads the saved game, if any
func (c *Config) LoadState() (State, error) {
	var state State

	data, err := os.ReadFile(c.StateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil // No state file is fine
		}
		return state, err
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

// SaveState records the current game
func (c *Config) SaveState(state State) error {
	dir := filepath.Dir(c.StateFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(c.StateFile, data, 0600)
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reversi/game.json"
	}
	return filepath.Join(home, ".reversi", "game.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
