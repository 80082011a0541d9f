// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation tracks which conversation is open and which ones the
// user can browse.
//
// The Coordinator persists the active conversation id in the local store,
// minting one on first use so an id always exists before a message is sent.
// It owns the list of conversation summaries and re-syncs it from the server
// after each completed turn. It never owns message content; callers reset
// the chat machine themselves after CreateNewChat or SwitchToChat.
package conversation
