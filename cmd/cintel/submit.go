package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/config"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/sealer"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new encrypted intelligence record",
	Long: `Submit cybercrime-infrastructure intelligence to the registry.

The plaintext is sealed by the configured encryption provider before it
leaves this process; the registry only ever stores ciphertext. With no
flags an interactive form collects the fields.

With --remote the sealed record is routed through a running daemon's
submit endpoint instead of writing the ledger directly, which keeps all
of a site's index appends in one process.`,
	Example: `  cintel submit --crime-type "C2 Server" --threat-level high --file intel.txt
  cintel submit --remote http://intel-daemon:8787`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		actorFlag, _ := cmd.Flags().GetString("actor")
		actor, err := identity.Resolve(actorFlag, cfg.Actor)
		if err != nil {
			return err
		}

		crimeType, _ := cmd.Flags().GetString("crime-type")
		threatFlag, _ := cmd.Flags().GetString("threat-level")
		file, _ := cmd.Flags().GetString("file")
		remote, _ := cmd.Flags().GetString("remote")

		var plaintext string
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			plaintext = string(data)
		}

		// Anything still missing is collected interactively.
		if crimeType == "" || plaintext == "" {
			if err := runSubmitForm(&crimeType, &threatFlag, &plaintext); err != nil {
				return err
			}
		}

		threat := schema.ThreatLevel(threatFlag)
		if threat != "" && !threat.IsValid() {
			return fmt.Errorf("invalid threat level %q (low, medium, high, critical)", threatFlag)
		}

		seal, err := sealer.FromSpec(cfg.Sealer, cfg.NewLogger("[sealer] "))
		if err != nil {
			return err
		}

		ciphertext, err := seal.Seal(cmd.Context(), []byte(plaintext))
		if err != nil {
			return fmt.Errorf("failed to seal plaintext: %w", err)
		}

		if remote != "" {
			id, err := remoteSubmit(remote, actor, crimeType, threat, ciphertext)
			if err != nil {
				return err
			}
			fmt.Printf("%s Submitted %s via %s\n", ui.RenderPass("✓"), id, remote)
			return nil
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := identity.WithActor(cmd.Context(), actor)
		id, err := a.engine.Submit(ctx, workflow.SubmitRequest{
			CrimeType:   crimeType,
			Ciphertext:  ciphertext,
			ThreatLevel: threat,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Submitted %s (%d encrypted bytes)\n", ui.RenderPass("✓"), id, len(ciphertext))
		return nil
	},
}

// runSubmitForm collects missing submission fields interactively.
func runSubmitForm(crimeType, threat, plaintext *string) error {
	if *threat == "" {
		*threat = string(schema.ThreatMedium)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Crime type").
				Description("What kind of infrastructure is this? (e.g. C2 Server, Phishing Domain)").
				Value(crimeType).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("crime type is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Threat level").
				Options(huh.NewOptions("low", "medium", "high", "critical")...).
				Value(threat),
			huh.NewText().
				Title("Intelligence").
				Description("The plaintext to seal. It never leaves this machine unencrypted.").
				Value(plaintext).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("intelligence text is required")
					}
					return nil
				}),
		),
	)
	return form.Run()
}

// remoteSubmit posts the sealed record to a daemon's submit endpoint.
func remoteSubmit(baseURL, actor, crimeType string, threat schema.ThreatLevel, ciphertext []byte) (string, error) {
	body, err := json.Marshal(map[string]string{
		"actor":        actor,
		"crime_type":   crimeType,
		"threat_level": string(threat),
		"ciphertext":   base64.StdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(baseURL, "/") + "/api/submit"
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("remote submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return "", fmt.Errorf("remote submit rejected (%s): %s", resp.Status, errBody.Error)
		}
		return "", fmt.Errorf("remote submit rejected: %s", resp.Status)
	}

	var ok struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		return "", fmt.Errorf("unreadable remote submit response: %w", err)
	}
	return ok.ID, nil
}

func init() {
	submitCmd.Flags().String("crime-type", "", "infrastructure category (e.g. \"C2 Server\")")
	submitCmd.Flags().String("threat-level", "", "low, medium, high, or critical (default medium)")
	submitCmd.Flags().StringP("file", "f", "", "read the plaintext from a file")
	submitCmd.Flags().String("remote", "", "submit through a running daemon at this base URL")
	rootCmd.AddCommand(submitCmd)
}
