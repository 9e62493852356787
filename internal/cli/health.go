package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/iq180/internal/api/response"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the quiz server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			if cfg.Verbose {
				out.PrintMessage("checking " + cfg.ServerURL)
			}

			var health response.HealthResponse
			if err := client.Get("/api/v1/health", &health); err != nil {
				return err
			}
			out.Print(health)
			return nil
		},
	}
}
