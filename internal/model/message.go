// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strconv"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// THINKING STEP
// =============================================================================

// ThinkingStep is one unit of progress disclosure emitted by the server.
// Metadata is opaque; its schema depends on StepType.
type ThinkingStep struct {
	StepType    string                 `json:"stepType"`
	Description string                 `json:"description"`
	StepOrder   int                    `json:"stepOrder"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Key returns a stable key for the step, derived from its server order.
func (s ThinkingStep) Key() string {
	return s.StepType + "#" + strconv.Itoa(s.StepOrder)
}

// SortSteps returns a copy of steps ordered by StepOrder.
// Steps with equal order keep their arrival order.
func SortSteps(steps []ThinkingStep) []ThinkingStep {
	out := CloneSteps(steps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StepOrder < out[j].StepOrder
	})
	return out
}

// CloneSteps copies a step slice. Metadata maps are shared; they are never
// mutated after decoding.
func CloneSteps(steps []ThinkingStep) []ThinkingStep {
	if steps == nil {
		return nil
	}
	out := make([]ThinkingStep, len(steps))
	copy(out, steps)
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Assistant messages only; frozen once the message completes
	ThinkingSteps []ThinkingStep `json:"thinkingSteps,omitempty"`

	// Routed sub-agent that produced the message, if known
	CrewMember string `json:"crewMember,omitempty"`

	// IsStreaming marks the single open assistant message of a turn
	IsStreaming bool `json:"-"`
}

// NewUserMessage creates a user message.
func NewUserMessage(id, content string, now time.Time) Message {
	return Message{
		ID:        id,
		Role:      RoleUser,
		Content:   content,
		Timestamp: now,
	}
}

// NewAssistantMessage creates an open assistant message seeded with a copy
// of the thinking steps accumulated so far.
func NewAssistantMessage(id string, steps []ThinkingStep, now time.Time) Message {
	if steps == nil {
		steps = []ThinkingStep{}
	}
	return Message{
		ID:            id,
		Role:          RoleAssistant,
		Timestamp:     now,
		ThinkingSteps: CloneSteps(steps),
		IsStreaming:   true,
	}
}

// IsUser returns true for user messages.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true for assistant messages.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	m.ThinkingSteps = CloneSteps(m.ThinkingSteps)
	return m
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
