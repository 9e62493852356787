package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/iq180/internal/api/request"
	"github.com/mcoot/iq180/internal/api/response"
	"github.com/mcoot/iq180/internal/model"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameAbortCmd())

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current game state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			if err := client.Get("/api/v1/game", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameAbortCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort the game in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.AbortGameRequest{Reason: model.EndReason(reason)}
			if err := client.Delete("/api/v1/game", req); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage("Game aborted")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", string(model.EndReasonAborted), "End reason: aborted, completed")

	return cmd
}
