package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record's metadata",
	Long: `Show a record's metadata: crime type, threat level, workflow status,
submitter, and timestamps. The ciphertext itself is summarized as a byte
count and is never printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.engine.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return json.NewEncoder(os.Stdout).Encode(toJSONRecord(rec))
		}

		fmt.Print(ui.RecordDetail(rec))
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "emit JSON instead of formatted text")
	rootCmd.AddCommand(showCmd)
}
