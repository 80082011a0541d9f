// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package localstore provides device-local key-value persistence.
//
// Keys are namespaced per agent with a storage prefix (for example
// "freeda_current_conversation_id"). Two backends exist: a SQLite file for
// the CLI and TUI, and an in-memory map for tests and --ephemeral runs.
// Structured values are stored inside a versioned envelope so older clients
// can detect and ignore data written by newer ones.
//
// # Key Types
//
//   - Store: backend interface
//   - SQLiteStore: persistent backend on modernc.org/sqlite
//   - MemoryStore: volatile backend
//   - Scope: prefix-bound view with best-effort helpers
//
// # Usage
//
//	store, err := localstore.Open(filepath.Join(dataDir, "state.db"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	scope := localstore.NewScope(store, "freeda_", logger)
//	id := scope.GetString(localstore.KeyConversationID)
package localstore
