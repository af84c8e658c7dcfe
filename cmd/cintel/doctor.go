package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/cache"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check registry health and repair index orphans",
	Long: `Check the deployment's health:

  - ledger reachability
  - namespace schema version against this client
  - view refresh, reporting unresolvable records
  - orphan detection: ids the cache has seen that the index has lost

A record is orphaned when its write landed but the matching index append
did not (a crash between the two ledger calls). Readers tolerate
orphans; --repair re-appends any orphan whose record still exists, which
is safe because appends are idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		problems := 0

		fmt.Printf("%s\n\n", ui.RenderHeader("cintel doctor"))

		// Ledger reachability.
		fmt.Printf("Ledger (%s): ", a.client.Name())
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		available := a.client.IsAvailable(pingCtx)
		cancel()
		if available {
			fmt.Printf("%s reachable\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("%s unreachable\n", ui.RenderFail("✗"))
			return fmt.Errorf("ledger backend %s is not reachable", a.client.Name())
		}

		// Namespace schema version.
		fmt.Printf("Schema version: ")
		problems += checkSchemaVersion(ctx, a.store)

		// View refresh and skip report.
		fmt.Printf("Read view: ")
		snap, err := a.builder.Refresh(ctx)
		if err != nil {
			fmt.Printf("%s refresh failed: %v\n", ui.RenderFail("✗"), err)
			return err
		}
		if len(snap.Skipped) == 0 {
			fmt.Printf("%s %d record(s), all resolved\n", ui.RenderPass("✓"), len(snap.Records))
		} else {
			problems++
			fmt.Printf("%s %d record(s) resolved, %d skipped\n", ui.RenderWarn("⚠"), len(snap.Records), len(snap.Skipped))
			for _, skip := range snap.Skipped {
				fmt.Printf("   %s (%s)\n", skip.ID, skip.Reason)
			}
		}

		// Orphan detection needs the cache's id history.
		if a.cfg.CachePath == "" {
			fmt.Printf("Orphan check: %s\n", ui.RenderDim("skipped (no cache_path configured)"))
		} else {
			n, err := checkOrphans(ctx, a, snap.Records, repair)
			if err != nil {
				return err
			}
			problems += n
		}

		fmt.Println()
		if problems == 0 {
			fmt.Printf("%s No problems found\n", ui.RenderPass("✓"))
		} else if repair {
			fmt.Printf("%s %d problem(s) found, repairs applied where possible\n", ui.RenderWarn("⚠"), problems)
		} else {
			fmt.Printf("%s %d problem(s) found (re-run with --repair to fix orphans)\n", ui.RenderWarn("⚠"), problems)
		}
		return nil
	},
}

// checkSchemaVersion compares the namespace meta against this client.
// Returns the number of problems found.
func checkSchemaVersion(ctx context.Context, st *store.Store) int {
	meta, err := st.ReadMeta(ctx)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Printf("%s\n", ui.RenderDim("not initialized (written on first submit)"))
		return 0
	}
	if err != nil {
		fmt.Printf("%s unreadable: %v\n", ui.RenderWarn("⚠"), err)
		return 1
	}

	ours := "v" + schema.SchemaVersion
	theirs := "v" + meta.SchemaVersion
	if !semver.IsValid(theirs) {
		fmt.Printf("%s namespace reports invalid version %q\n", ui.RenderWarn("⚠"), meta.SchemaVersion)
		return 1
	}

	switch semver.Compare(semver.Major(theirs), semver.Major(ours)) {
	case 0:
		fmt.Printf("%s namespace %s, client %s\n", ui.RenderPass("✓"), meta.SchemaVersion, schema.SchemaVersion)
		return 0
	case 1:
		fmt.Printf("%s namespace %s is newer than this client (%s); upgrade cintel\n",
			ui.RenderWarn("⚠"), meta.SchemaVersion, schema.SchemaVersion)
		return 1
	default:
		fmt.Printf("%s namespace %s is older than this client (%s)\n",
			ui.RenderWarn("⚠"), meta.SchemaVersion, schema.SchemaVersion)
		return 1
	}
}

// checkOrphans compares the cache's seen-id history against the current
// index. An id the cache once listed that the index no longer holds, but
// whose record still exists, is an orphan; --repair re-appends it.
// Returns the number of problems found.
func checkOrphans(ctx context.Context, a *app, indexed []*schema.Record, repair bool) (int, error) {
	c, err := cache.Open(a.cfg.CachePath)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	seen, err := c.SeenIDs(ctx)
	if err != nil {
		return 0, err
	}

	inIndex := make(map[string]bool, len(indexed))
	for _, rec := range indexed {
		inIndex[rec.ID] = true
	}

	var orphans []string
	for _, id := range seen {
		if inIndex[id] {
			continue
		}
		// Only an orphan if the record itself still exists.
		if _, err := a.store.Get(ctx, id); err == nil {
			orphans = append(orphans, id)
		}
	}

	if len(orphans) == 0 {
		fmt.Printf("Orphan check: %s %d known id(s), none orphaned\n", ui.RenderPass("✓"), len(seen))
		return 0, nil
	}

	fmt.Printf("Orphan check: %s %d record(s) written but missing from the index\n", ui.RenderWarn("⚠"), len(orphans))
	for _, id := range orphans {
		if !repair {
			fmt.Printf("   %s\n", id)
			continue
		}
		if err := a.index.Append(ctx, id); err != nil {
			fmt.Printf("   %s %s: re-append failed: %v\n", ui.RenderFail("✗"), id, err)
			continue
		}
		fmt.Printf("   %s %s relinked\n", ui.RenderPass("✓"), id)
	}
	return len(orphans), nil
}

func init() {
	doctorCmd.Flags().Bool("repair", false, "re-append orphaned records to the index")
	rootCmd.AddCommand(doctorCmd)
}
