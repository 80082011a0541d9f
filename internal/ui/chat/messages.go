// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/pipeline"
)

// =============================================================================
// CORE SIGNALS
// =============================================================================

// changedMsg reports that the machine, coordinator or overlay changed.
// Bursts coalesce into one message; the handler re-reads all snapshots.
type changedMsg struct{}

// OpenedMsg signals that the session finished its startup loads.
type OpenedMsg struct{}

// =============================================================================
// TURN MESSAGES
// =============================================================================

// TurnDoneMsg reports the end of a turn started from the input box.
type TurnDoneMsg struct {
	Result pipeline.Result
	Err    error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// SwitchedMsg reports the outcome of opening a conversation.
type SwitchedMsg struct {
	ID  string
	Err error
}

// DeletedMsg reports the outcome of deleting a conversation.
type DeletedMsg struct {
	ID  string
	Err error
}

// RenamedMsg reports the outcome of renaming a conversation.
type RenamedMsg struct {
	ID  string
	Err error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a configuration reloaded from disk. A non-nil
// Err means the new file was rejected and the current settings stay.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// noticeMsg sets the transient status line.
type noticeMsg string
