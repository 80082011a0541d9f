// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the crewchat terminal UI.
//
// All colors are lipgloss AdaptiveColor values so light and dark terminals
// both read well. The background is detected through termenv unless the
// configured theme forces one.
//
// # Key Types
//
//   - Theme: Every lipgloss style the chat view renders with
//   - StatusIndicatorSet: ASCII shapes that accompany status colors
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	header := theme.HeaderTitle.Render(profile.HeaderTitle)
//	badge := theme.CrewStyle("nutrition").Render("Nutrition")
package styles
