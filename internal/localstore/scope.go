// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/crewchat/internal/logging"
)

// =============================================================================
// ENVELOPE
// =============================================================================

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps v in a versioned envelope.
func Encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{V: EnvelopeVersion, Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decode unwraps an envelope into out. Bare JSON values written before
// envelopes existed are accepted as version 0.
func Decode(raw string, out interface{}) (int, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return 0, ErrEnvelope
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.V > 0 && env.Data != nil {
			if env.V > EnvelopeVersion {
				return env.V, fmt.Errorf("%w: v%d", ErrEnvelopeNewer, env.V)
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return env.V, fmt.Errorf("%w: %v", ErrEnvelope, err)
			}
			return env.V, nil
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return 0, nil
}

// =============================================================================
// SCOPE
// =============================================================================

// Scope is a view of a Store restricted to one key prefix. Its helpers are
// best-effort: failures are logged and reported as absent values, never
// propagated into chat flow.
type Scope struct {
	store  Store
	prefix string
	log    *logging.Logger
}

// NewScope binds store to prefix.
func NewScope(store Store, prefix string, log *logging.Logger) *Scope {
	return &Scope{store: store, prefix: prefix, log: log}
}

// Prefix returns the key prefix.
func (s *Scope) Prefix() string { return s.prefix }

// Key returns the full storage key for name.
func (s *Scope) Key(name string) string { return s.prefix + name }

// GetString returns the value for name, or "" when absent or unreadable.
func (s *Scope) GetString(name string) string {
	v, ok, err := s.store.Get(s.Key(name))
	if err != nil {
		s.log.Warn("LOCALSTORE_READ_FAILED", "key", s.Key(name), "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// SetString stores value under name and reports success.
func (s *Scope) SetString(name, value string) bool {
	if err := s.store.Set(s.Key(name), value); err != nil {
		s.log.Warn("LOCALSTORE_WRITE_FAILED", "key", s.Key(name), "error", err)
		return false
	}
	return true
}

// Remove deletes name and reports success.
func (s *Scope) Remove(name string) bool {
	if err := s.store.Delete(s.Key(name)); err != nil {
		s.log.Warn("LOCALSTORE_WRITE_FAILED", "key", s.Key(name), "error", err)
		return false
	}
	return true
}

// GetJSON decodes the enveloped value under name into out.
// It returns false when the key is absent, unreadable or malformed.
func (s *Scope) GetJSON(name string, out interface{}) bool {
	raw := s.GetString(name)
	if raw == "" {
		return false
	}
	if _, err := Decode(raw, out); err != nil {
		s.log.Warn("LOCALSTORE_VALUE_IGNORED", "key", s.Key(name), "error", err)
		return false
	}
	return true
}

// SetJSON stores v in an envelope under name.
func (s *Scope) SetJSON(name string, v interface{}) bool {
	raw, err := Encode(v)
	if err != nil {
		s.log.Warn("LOCALSTORE_WRITE_FAILED", "key", s.Key(name), "error", err)
		return false
	}
	return s.SetString(name, raw)
}

// GetBool returns the stored flag, or def.
func (s *Scope) GetBool(name string, def bool) bool {
	var v bool
	if !s.GetJSON(name, &v) {
		return def
	}
	return v
}

// SetBool stores a flag.
func (s *Scope) SetBool(name string, v bool) bool {
	return s.SetJSON(name, v)
}

// Names lists the scope's keys with the prefix removed.
func (s *Scope) Names() []string {
	keys, err := s.store.Keys(s.prefix)
	if err != nil {
		s.log.Warn("LOCALSTORE_READ_FAILED", "prefix", s.prefix, "error", err)
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, s.prefix))
	}
	return names
}

// Clear removes every key in the scope.
func (s *Scope) Clear() error {
	keys, err := s.store.Keys(s.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
