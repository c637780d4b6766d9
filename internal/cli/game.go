package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameStartBotCmd())
	cmd.AddCommand(newGameStrategiesCmd())
	cmd.AddCommand(newGameConnectCmd())
	cmd.AddCommand(newGameConnectRandomCmd())
	cmd.AddCommand(newGameMoveCmd())
	cmd.AddCommand(newGameGetCmd())

	return cmd
}

// requireLogin returns the configured login or an error
func requireLogin() (string, error) {
	login := strings.TrimSpace(cfg.Login)
	if login == "" {
		return "", errors.New("login required (--login or REVERSI_LOGIN)")
	}
	return login, nil
}

// remember saves the game and the side login plays in it
func remember(s Snapshot, login string) error {
	disk := ""
	for _, p := range []*Player{s.GamePlayer1, s.GamePlayer2} {
		if p != nil && p.Login == login && !p.IsBot {
			disk = p.Disk
		}
	}
	return cfg.SaveState(State{GameID: s.GameID, Disk: disk})
}

// printAndRemember prints the snapshot and saves it as the current game
func printAndRemember(s Snapshot, login string) error {
	if err := remember(s, login); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	NewOutput(cfg.Output).Print(s)
	return nil
}

// resolveGameID picks the explicit id or falls back to the saved game
func resolveGameID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	state, err := cfg.LoadState()
	if err != nil {
		return "", err
	}
	if state.GameID == "" {
		return "", errors.New("no game id given and no saved game")
	}
	return state.GameID, nil
}

func newGameStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new game and wait for an opponent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			login, err := requireLogin()
			if err != nil {
				return err
			}

			var result Snapshot
			if err := client.Post("/game/start", map[string]string{"login": login}, &result); err != nil {
				return err
			}
			return printAndRemember(result, login)
		},
	}
}

func newGameStartBotCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "start-bot",
		Short: "Start a new game against a bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			login, err := requireLogin()
			if err != nil {
				return err
			}

			body := map[string]string{"login": login}
			if strategy != "" {
				body["strategy"] = strategy
			}

			var result Snapshot
			if err := client.Post("/game/start/bot", body, &result); err != nil {
				return err
			}
			return printAndRemember(result, login)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Bot strategy (see 'game strategies')")

	return cmd
}

func newGameStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List bot strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StrategiesResult
			if err := client.Get("/game/bot/strategies", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <game-id>",
		Short: "Join a waiting game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			login, err := requireLogin()
			if err != nil {
				return err
			}

			body := map[string]any{
				"client": map[string]string{"login": login},
				"gameId": args[0],
			}

			var result Snapshot
			if err := client.Post("/game/connect", body, &result); err != nil {
				return err
			}
			return printAndRemember(result, login)
		},
	}
}

func newGameConnectRandomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect-random",
		Short: "Join the longest-waiting game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			login, err := requireLogin()
			if err != nil {
				return err
			}

			var result Snapshot
			if err := client.Post("/game/connect/random", map[string]string{"login": login}, &result); err != nil {
				return err
			}
			return printAndRemember(result, login)
		},
	}
}

func newGameMoveCmd() *cobra.Command {
	var gameID, disk string

	cmd := &cobra.Command{
		Use:   "move <x> <y>",
		Short: "Place a disk at row x, column y",
		Long: `Place a disk at row x, column y (both 0-7).

The game and disk default to the last game started or joined.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("x must be a number: %w", err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("y must be a number: %w", err)
			}

			state, err := cfg.LoadState()
			if err != nil {
				return err
			}
			if gameID == "" {
				gameID = state.GameID
			}
			if disk == "" {
				disk = state.Disk
			}
			if gameID == "" || disk == "" {
				return errors.New("--game and --disk required when no game is saved")
			}

			body := map[string]any{
				"disk":   strings.ToUpper(disk),
				"coord":  map[string]int{"x": x, "y": y},
				"gameId": gameID,
			}

			var result Snapshot
			if err := client.Post("/game/move", body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameID, "game", "", "Game id (defaults to the saved game)")
	cmd.Flags().StringVar(&disk, "disk", "", "WHITE or BLACK (defaults to the saved side)")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [game-id]",
		Short: "Get current game state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := resolveGameID(args)
			if err != nil {
				return err
			}

			var result Snapshot
			if err := client.Get("/game/"+gameID, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
