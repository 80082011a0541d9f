// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// ThinkingSpinner animates the thinking indicator.
var ThinkingSpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    time.Second / 12,
}

// Theme holds all styles for the chat interface.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App            lipgloss.Style
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	Divider        lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantBody  lipgloss.Style
	Timestamp      lipgloss.Style
	Cursor         lipgloss.Style

	// ==========================================================================
	// THINKING
	// ==========================================================================

	Thinking        lipgloss.Style
	ThinkingStep    lipgloss.Style
	ThinkingSpinner lipgloss.Style

	// ==========================================================================
	// CREW
	// ==========================================================================

	CrewBadge     lipgloss.Style
	OverrideBadge lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style
	SidebarMeta     lipgloss.Style

	// ==========================================================================
	// WELCOME
	// ==========================================================================

	WelcomeTitle    lipgloss.Style
	WelcomeMessage  lipgloss.Style
	QuickQuestion   lipgloss.Style
	QuickQuestionNo lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style
	StatusValue    lipgloss.Style
	ErrorBox       lipgloss.Style
	Notice         lipgloss.Style
}

// NewTheme creates a theme for mode. "auto" (or anything unrecognized)
// asks the terminal for its background; "dark" and "light" force it.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

// CrewStyle returns the badge style for a crew member.
func (t *Theme) CrewStyle(name string) lipgloss.Style {
	return t.CrewBadge.Foreground(CrewColor(name))
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.Divider = lipgloss.NewStyle().
		Foreground(Overlay)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.AssistantBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Cursor = lipgloss.NewStyle().
		Foreground(Purple).
		Blink(true)

	// Thinking
	t.Thinking = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.ThinkingStep = lipgloss.NewStyle().
		Foreground(TextMuted).
		PaddingLeft(2)
	t.ThinkingSpinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Crew
	t.CrewBadge = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)
	t.OverrideBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)
	t.SidebarActive = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Welcome
	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)
	t.WelcomeMessage = lipgloss.NewStyle().
		Foreground(TextSecondary).
		MarginBottom(1)
	t.QuickQuestion = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.QuickQuestionNo = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// Input and status
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)
}
