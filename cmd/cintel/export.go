package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/export"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records as a JSONL snapshot",
	Long: `Export every resolvable record as JSON Lines, oldest first.

This is the one surface that carries the ciphertext out of the registry:
exports are backups and inter-site transfers, so the encrypted payload
travels with its metadata. Records a refresh cannot resolve are reported
and left out.

With no --out the snapshot is written to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.builder.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return export.WriteSnapshot(os.Stdout, snap.Records)
		}

		if err := export.WriteSnapshotFile(out, snap.Records); err != nil {
			return err
		}

		fmt.Printf("%s Exported %d record(s) to %s\n", ui.RenderPass("✓"), len(snap.Records), out)
		if len(snap.Skipped) > 0 {
			fmt.Printf("%s %d record(s) could not be resolved and were left out\n", ui.RenderWarn("⚠"), len(snap.Skipped))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records from a JSONL snapshot",
	Long: `Replay a JSONL snapshot into the registry.

Records whose id already exists are skipped, so importing the same file
twice is harmless. Damaged records under an existing id are replaced.
Use --dry-run to see what would happen without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := export.ReadSnapshotFile(args[0])
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := export.Import(cmd.Context(), a.store, a.index, records, export.ImportOptions{
			DryRun: dryRun,
		})
		if err != nil {
			return err
		}

		verb := "Imported"
		if dryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %s %d record(s), skipped %d existing\n", ui.RenderPass("✓"), verb, result.Imported, result.Skipped)
		for _, importErr := range result.Errors {
			fmt.Printf("%s %v\n", ui.RenderWarn("⚠"), importErr)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "write the snapshot to a file (atomic)")
	importCmd.Flags().Bool("dry-run", false, "parse and count without writing")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
