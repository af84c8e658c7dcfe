package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

var (
	statusStyles = map[schema.Status]lipgloss.Style{
		schema.StatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		schema.StatusAnalyzed: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		schema.StatusActioned: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}

	threatStyles = map[schema.ThreatLevel]lipgloss.Style{
		schema.ThreatLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		schema.ThreatMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		schema.ThreatHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		schema.ThreatCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// RenderStatus styles a workflow status for table output.
func RenderStatus(s schema.Status) string {
	if style, ok := statusStyles[s]; ok {
		return render(style, string(s))
	}
	return string(s)
}

// RenderThreat styles a threat level for table output.
func RenderThreat(t schema.ThreatLevel) string {
	if style, ok := threatStyles[t]; ok {
		return render(style, string(t))
	}
	return string(t)
}

// RecordTable renders records as an aligned text table. The ciphertext is
// shown only as a byte count; its contents never reach the terminal.
func RecordTable(records []*schema.Record) string {
	if len(records) == 0 {
		return "No records.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-28s %-24s %-9s %-9s %-12s %s\n",
		RenderHeader("ID"), RenderHeader("CRIME TYPE"), RenderHeader("THREAT"),
		RenderHeader("STATUS"), RenderHeader("SUBMITTER"), RenderHeader("CREATED"))

	for _, rec := range records {
		fmt.Fprintf(&b, "%-28s %-24s %-9s %-9s %-12s %s\n",
			rec.ID,
			truncate(rec.CrimeType, 24),
			RenderThreat(rec.ThreatLevel),
			RenderStatus(rec.Status),
			truncate(rec.Submitter, 12),
			rec.CreatedTime().Format("2006-01-02 15:04"),
		)
	}
	return b.String()
}

// RecordDetail renders one record with field labels. The ciphertext is
// summarized, never printed.
func RecordDetail(rec *schema.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", RenderAccent("Record"), rec.ID)
	fmt.Fprintf(&b, "  Crime type:  %s\n", rec.CrimeType)
	fmt.Fprintf(&b, "  Threat:      %s\n", RenderThreat(rec.ThreatLevel))
	fmt.Fprintf(&b, "  Status:      %s\n", RenderStatus(rec.Status))
	fmt.Fprintf(&b, "  Submitter:   %s\n", rec.Submitter)
	fmt.Fprintf(&b, "  Created:     %s\n", rec.CreatedTime().Format(time.RFC1123))
	fmt.Fprintf(&b, "  Payload:     %d encrypted bytes\n", len(rec.Ciphertext))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
