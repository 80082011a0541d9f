// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// configureColors applies the CLI color profile to lipgloss. The TUI path
// skips it so the alternate screen keeps full color detection.
func configureColors() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// ValueStyle is used for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	// DimStyle is used for hints and secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// promptStyle colors the REPL prompt
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// welcomeStyle is the REPL banner
	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// stepStyle renders thinking progress lines
	stepStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)
)

// RenderSeparator renders a horizontal line of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return DimStyle.Render(strings.Repeat("-", width))
}

// RenderLabel renders a padded label followed by its value.
func RenderLabel(label, value string) string {
	return LabelStyle.Render(padRight(label+":", 16)) + ValueStyle.Render(value)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s + " "
	}
	return s + strings.Repeat(" ", n-len(s))
}
