package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Mark a pending record as analyzed",
	Long: `Move a record from pending to analyzed.

Under the default policy only the submitting agency may analyze its own
records. Deployments can change that with a policy file (policy_file in
the config).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := identity.WithActor(cmd.Context(), a.actor)
		if err := a.engine.Analyze(ctx, args[0]); err != nil {
			return err
		}

		fmt.Printf("%s %s is now analyzed\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

var actionCmd = &cobra.Command{
	Use:   "action <id>",
	Short: "Mark an analyzed record as actioned",
	Long: `Move a record from analyzed to its terminal actioned state,
recording that enforcement action has been taken on the intelligence.

Under the default policy any agency may action an analyzed record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := identity.WithActor(cmd.Context(), a.actor)
		if err := a.engine.MarkActioned(ctx, args[0]); err != nil {
			return err
		}

		fmt.Printf("%s %s is now actioned\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(actionCmd)
}
