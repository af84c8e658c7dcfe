package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/config"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/cache"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List intelligence records",
	Long: `List records from a fresh view refresh, newest first.

Records the refresh could not resolve (orphaned index entries, damaged
payloads, unreachable substrate) are reported separately; a partial
listing is normal operation, not an error.

With --cached the listing is served from the local SQLite mirror
maintained by the daemon, without touching the ledger.`,
	Example: `  cintel list --status pending --threat-level high
  cintel list --since "3 days ago" --query phishing
  cintel list --cached --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		cached, _ := cmd.Flags().GetBool("cached")

		if cached {
			return listCached(cmd, filter, asJSON)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.builder.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		records := snap.Filter(filter)

		if asJSON {
			return json.NewEncoder(os.Stdout).Encode(toJSONRecords(records))
		}

		fmt.Print(ui.RecordTable(records))
		if len(snap.Skipped) > 0 {
			fmt.Printf("\n%s %d record(s) could not be resolved:\n", ui.RenderWarn("⚠"), len(snap.Skipped))
			for _, skip := range snap.Skipped {
				fmt.Printf("   %s (%s)\n", skip.ID, skip.Reason)
			}
		}
		return nil
	},
}

// listCached serves the listing from the local mirror.
func listCached(cmd *cobra.Command, filter view.Filter, asJSON bool) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfigForCache(cfgPath)
	if err != nil {
		return err
	}

	c, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer c.Close()

	records, err := c.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(toJSONRecords(records))
	}

	fmt.Print(ui.RecordTable(records))

	refreshedAt, err := c.RefreshedAt(cmd.Context())
	if err == nil && !refreshedAt.IsZero() {
		fmt.Printf("\n%s\n", ui.RenderDim(fmt.Sprintf("cached snapshot from %s", refreshedAt.Format(time.RFC1123))))
	}
	return nil
}

// loadConfigForCache loads config and requires a cache path.
func loadConfigForCache(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.CachePath == "" {
		return nil, fmt.Errorf("--cached requires cache_path in the config (the daemon maintains the mirror)")
	}
	return cfg, nil
}

// filterFromFlags builds the view filter from the list flags.
func filterFromFlags(cmd *cobra.Command) (view.Filter, error) {
	var f view.Filter

	status, _ := cmd.Flags().GetString("status")
	if status != "" {
		f.Status = schema.Status(status)
		if !f.Status.IsValid() {
			return f, fmt.Errorf("invalid status %q (pending, analyzed, actioned)", status)
		}
	}

	threat, _ := cmd.Flags().GetString("threat-level")
	if threat != "" {
		f.ThreatLevel = schema.ThreatLevel(threat)
		if !f.ThreatLevel.IsValid() {
			return f, fmt.Errorf("invalid threat level %q (low, medium, high, critical)", threat)
		}
	}

	f.Query, _ = cmd.Flags().GetString("query")

	since, _ := cmd.Flags().GetString("since")
	if since != "" {
		t, err := parseSince(since)
		if err != nil {
			return f, err
		}
		f.CreatedSince = t
	}

	return f, nil
}

// parseSince accepts RFC3339 timestamps and natural-language phrases
// like "3 days ago" or "last monday".
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse --since %q: %w", s, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("cannot parse --since %q (try RFC3339 or e.g. \"3 days ago\")", s)
	}
	return result.Time, nil
}

func init() {
	listCmd.Flags().String("status", "", "filter by status (pending, analyzed, actioned)")
	listCmd.Flags().String("threat-level", "", "filter by threat level")
	listCmd.Flags().StringP("query", "q", "", "substring match on crime type or id")
	listCmd.Flags().String("since", "", "only records created since (RFC3339 or natural language)")
	listCmd.Flags().Bool("cached", false, "serve from the local mirror without touching the ledger")
	listCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
