// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, knowledge base indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, override pin
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}
var SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

// CrewPalette colors crew badges. A member keeps its color for the life of
// the process.
var CrewPalette = []lipgloss.AdaptiveColor{
	{Light: "#0E7490", Dark: "#67E8F9"},
	{Light: "#7C3AED", Dark: "#C4B5FD"},
	{Light: "#047857", Dark: "#6EE7B7"},
	{Light: "#B45309", Dark: "#FCD34D"},
	{Light: "#BE123C", Dark: "#FDA4AF"},
	{Light: "#1D4ED8", Dark: "#93C5FD"},
}

// CrewColor picks a palette entry for a crew member name.
func CrewColor(name string) lipgloss.AdaptiveColor {
	h := fnv.New32a()
	h.Write([]byte(name))
	return CrewPalette[int(h.Sum32()%uint32(len(CrewPalette)))]
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet holds ASCII shapes shown next to status colors.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are always rendered alongside color so state survives
// monochrome terminals.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

var (
	successStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
)

// RenderSuccess renders text with the success indicator.
func RenderSuccess(text string) string {
	return successStyle.Render(StatusIndicators.Success + " " + text)
}

// RenderError renders text with the error indicator.
func RenderError(text string) string {
	return errorStyle.Render(StatusIndicators.Error + " " + text)
}

// RenderWarning renders text with the warning indicator.
func RenderWarning(text string) string {
	return warningStyle.Render(StatusIndicators.Warning + " " + text)
}

// RenderInfo renders text with the info indicator.
func RenderInfo(text string) string {
	return infoStyle.Render(StatusIndicators.Info + " " + text)
}
