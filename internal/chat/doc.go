// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat state machine for one conversation view.
//
// The machine moves idle -> thinking -> streaming -> idle on success, falls
// back to idle with Error set on failure, and resets to idle on new chat or
// history load. Every transition is a pure function from State to State that
// is defined for every phase: calls that do not apply return the input
// unchanged. Network I/O never happens here.
//
// # Key Types
//
//   - State: messages, thinking steps, loading flags, error
//   - Phase: idle, thinking, streaming
//   - Machine: serializes transitions and notifies subscribers with snapshots
//
// # Usage
//
//	m := chat.NewMachine(conversationID)
//	unsub := m.Subscribe(func(s chat.State) { render(s) })
//	defer unsub()
//	if _, err := m.Submit("hello"); err != nil {
//	    return err // chat.ErrBusy while a turn is loading
//	}
package chat
