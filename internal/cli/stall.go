package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stall",
		Short: "Stall registry commands",
	}

	cmd.AddCommand(newStallRegisterCmd())
	cmd.AddCommand(newStallListCmd())
	cmd.AddCommand(newStallGetCmd())
	cmd.AddCommand(newStallUpdateCmd())
	cmd.AddCommand(newStallRemoveCmd())

	return cmd
}

func newStallRegisterCmd() *cobra.Command {
	var name, incharge, credential string

	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register a stall and provision its counters (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || incharge == "" || credential == "" {
				return fmt.Errorf("--name, --incharge, and --credential are required")
			}

			req := map[string]string{
				"stall_id":     args[0],
				"display_name": name,
				"incharge":     incharge,
				"credential":   credential,
			}
			var result Stall

			if err := client.Post("/api/v1/stalls", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&incharge, "incharge", "", "Person in charge (required)")
	cmd.Flags().StringVar(&credential, "credential", "", "Stall login credential (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("incharge")
	_ = cmd.MarkFlagRequired("credential")

	return cmd
}

func newStallListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered stalls",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StallList

			if err := client.Get("/api/v1/stalls", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newStallGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Stall

			if err := client.Get("/api/v1/stalls/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newStallUpdateCmd() *cobra.Command {
	var name, incharge, credential string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a stall's details (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || incharge == "" {
				return fmt.Errorf("--name and --incharge are required")
			}

			req := map[string]string{
				"display_name": name,
				"incharge":     incharge,
			}
			if credential != "" {
				req["credential"] = credential
			}
			var result Stall

			if err := client.Patch("/api/v1/stalls/"+args[0], req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&incharge, "incharge", "", "Person in charge (required)")
	cmd.Flags().StringVar(&credential, "credential", "", "New credential (optional)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("incharge")

	return cmd
}

func newStallRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Deregister a stall and drop its counters (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/stalls/" + args[0]); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Stall removed")
			return nil
		},
	}
}
