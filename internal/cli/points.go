package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAwardCmd() *cobra.Command {
	var stallID string

	cmd := &cobra.Command{
		Use:   "award <player-id> <amount>",
		Short: "Award points to a player on behalf of a stall",
		Long: `Award points to a player. Stall operators award for their own stall;
admins must name the stall with --stall.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be an integer: %q", args[1])
			}

			stall := stallID
			if stall == "" {
				// Fall back to the logged-in session's stall
				var me AuthResult
				if err := client.Get("/api/v1/auth/me", &me); err != nil {
					return err
				}
				stall = me.StallID
			}
			if stall == "" {
				return fmt.Errorf("--stall is required for non-stall sessions")
			}

			req := map[string]any{
				"stall_id": stall,
				"amount":   amount,
			}
			var result PlayerRecord

			if err := client.Post("/api/v1/players/"+args[0]+"/award", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&stallID, "stall", "", "Stall to award on behalf of (defaults to the session's stall)")

	return cmd
}

func newDeductCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deduct <player-id> <amount>",
		Short: "Deduct points from a player's balance (gift counter or admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be an integer: %q", args[1])
			}

			req := map[string]any{"amount": amount}
			var result PlayerRecord

			if err := client.Post("/api/v1/players/"+args[0]+"/deduct", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
