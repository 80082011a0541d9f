// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localstore

import (
	"errors"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("store closed")
	ErrSchemaTooNew  = errors.New("store schema is newer than this client")
	ErrEnvelope      = errors.New("malformed stored value")
	ErrEnvelopeNewer = errors.New("stored value written by a newer client")
)

// Well-known keys, appended to an agent's storage prefix.
const (
	KeyConversationID   = "current_conversation_id"
	KeyUserID           = "user_id"
	KeyUseKnowledgeBase = "use_knowledge_base"
	KeyCrewOverride     = "crew_override"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a string key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Keys lists keys with the given prefix in lexical order.
	Keys(prefix string) ([]string, error)
	Close() error
}
