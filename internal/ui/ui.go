// Package ui provides terminal rendering helpers for the cintel CLI.
//
// All color output degrades to plain text when stdout is not a TTY or
// when NO_COLOR is set, so command output stays pipe- and script-safe.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// colorEnabled reports whether styled output should be produced.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// RenderPass styles a success marker.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles a warning marker.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail styles a failure marker.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderAccent styles informational highlights.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderDim styles secondary detail.
func RenderDim(s string) string { return render(dimStyle, s) }

// RenderHeader styles a table or section header.
func RenderHeader(s string) string { return render(headerStyle, s) }
