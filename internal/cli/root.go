package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "reversi",
		Short: "CLI tool for the Reversi game server",
		Long: `reversi is a CLI tool for playing on a Reversi game server.

It can start, join and play games, play against bots, and follow a game's
progress live over WebSocket or Server-Sent Events.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: REVERSI_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Login, "login", "l", cfg.Login, "Player login (env: REVERSI_LOGIN)")
	rootCmd.PersistentFlags().StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "Saved game file (env: REVERSI_STATE_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
