// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session wires one agent's chat core from an explicit dependency
// bundle.
//
// # Key Types
//
//   - Context: Agent profile, user identity, scoped local store, API client, logger
//   - Session: Chat machine, conversation coordinator, crew overlay and sender
//
// # Usage
//
//	sc := session.NewContext(session.Options{Config: cfg, Store: store, Logger: log})
//	s := session.New(sc)
//	s.Open(ctx)
//	defer s.Close()
//
//	if _, err := s.Send(ctx, "How can I improve my sleep?"); err != nil {
//	    // the failure is also in s.Machine.State().Error
//	}
package session
