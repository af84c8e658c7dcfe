package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/loadtest"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Run a concurrent submission load test",
	Long: `Drive concurrent submissions against the configured ledger and verify
index integrity afterwards: every submitted record must be listed
exactly once, however the writers interleaved.

Point this at a disposable namespace; the submitted records are
synthetic and are not cleaned up.`,
	Example: `  cintel loadtest --writers 50 --records 20 --namespace loadtest`,
	RunE: func(cmd *cobra.Command, args []string) error {
		writers, _ := cmd.Flags().GetInt("writers")
		records, _ := cmd.Flags().GetInt("records")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("%s Submitting with %d writers x %d records against %s...\n",
			ui.RenderAccent("▶"), writers, records, a.client.Name())

		h := &loadtest.Harness{
			Engine:  a.engine,
			Index:   a.index,
			Builder: a.builder,
		}

		res, err := h.RunConcurrentSubmits(cmd.Context(), writers, records)
		if err != nil {
			return err
		}

		fmt.Printf("\nSubmit latency: %s\n", res.Stats)

		if err := h.VerifyIndexIntegrity(cmd.Context(), res.IDs); err != nil {
			fmt.Printf("%s %v\n", ui.RenderFail("✗"), err)
			return err
		}

		fmt.Printf("%s Index integrity verified: %d record(s), each listed exactly once\n",
			ui.RenderPass("✓"), len(res.IDs))
		return nil
	},
}

func init() {
	loadtestCmd.Flags().Int("writers", 20, "concurrent submitting identities")
	loadtestCmd.Flags().Int("records", 10, "records per writer")
	rootCmd.AddCommand(loadtestCmd)
}
