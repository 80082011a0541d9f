// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for one agent session.
//
// The model never owns chat state. It subscribes to the session's chat
// machine, conversation coordinator and crew overlay, and re-reads their
// snapshots whenever any of them signals a change. Turns run in tea.Cmd
// goroutines through the session's send pipeline.
//
// # Key Types
//
//   - Model: The tea.Model rendering header, history sidebar, transcript and input
//   - KeyMap: Keyboard bindings
//   - ConfigReloadedMsg: Delivered by the config watcher to apply new UI settings
//
// # Usage
//
//	m := chat.New(sess, chat.Options{Theme: styles.NewTheme(cfg.UI.Theme), UI: cfg.UI})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
package chat
