package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the game server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get("/health", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			if result.Status != "ok" {
				return fmt.Errorf("server at %s is %s", client.BaseURL(), result.Status)
			}
			return nil
		},
	}
}
