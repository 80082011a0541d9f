// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across crewchat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement (temp file, fsync, rename)
//   - TruncateWidth / PadWidth: terminal-column aware truncation
//   - NormalizeText: trim and NFC-normalize outbound message text
//   - NewID: random UUID identifiers for conversations and messages
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 32)
//	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
//	    return err
//	}
package util
