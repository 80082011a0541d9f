// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/crewchat/internal/config"
	chatui "github.com/jeranaias/crewchat/internal/ui/chat"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// runTUI runs the full-screen chat until the user quits. When the config
// came from a file, edits to it are pushed into the running program.
func runTUI(ctx context.Context, a *app) error {
	sess := a.session()
	defer sess.Close()

	theme := styles.NewTheme(a.cfg.UI.Theme)
	m := chatui.New(sess, chatui.Options{Theme: theme, UI: a.cfg.UI})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if a.cfgPath != "" {
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		_, err := config.Watch(watchCtx, a.cfgPath, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
			p.Send(chatui.ConfigReloadedMsg{Config: cfg, Err: err})
		})
		if err != nil {
			a.log.Warn("CONFIG_WATCH_FAILED", "path", a.cfgPath, "error", err)
		}
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return NewCommandError("chat", "run terminal UI", err)
	}
	return nil
}
