// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the machine's position within a turn.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseThinking
	PhaseStreaming
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseThinking:
		return "thinking"
	case PhaseStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Active reports whether a turn is in progress.
func (p Phase) Active() bool {
	return p == PhaseThinking || p == PhaseStreaming
}

// =============================================================================
// STATE
// =============================================================================

// State is the machine's memory. Values are treated as immutable: transitions
// build new slices rather than writing through shared ones.
type State struct {
	Messages       []model.Message
	ConversationID string
	Phase          Phase

	// IsLoading spans the whole turn; IsThinking only the pre-content phase.
	IsLoading  bool
	IsThinking bool

	CurrentThinkingStep string
	ThinkingSteps       []model.ThinkingStep

	// ThinkingComplete records the server's thinking_complete signal. The
	// thinking indicator stays up until content starts regardless.
	ThinkingComplete bool

	// PlaceholderStep marks CurrentThinkingStep as a canned fallback phrase
	// rather than a server step.
	PlaceholderStep bool

	HasStartedChat bool
	Error          string
}

// Initial returns the empty state for a conversation.
func Initial(conversationID string) State {
	return State{
		Messages:       []model.Message{},
		ConversationID: conversationID,
		ThinkingSteps:  []model.ThinkingStep{},
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	s.Messages = model.CloneMessages(s.Messages)
	s.ThinkingSteps = model.CloneSteps(s.ThinkingSteps)
	return s
}

// OpenMessage returns the assistant message currently accepting chunks.
func (s State) OpenMessage() (model.Message, bool) {
	if n := len(s.Messages); n > 0 {
		last := s.Messages[n-1]
		if last.IsAssistant() && last.IsStreaming {
			return last, true
		}
	}
	return model.Message{}, false
}

// OpenCount returns how many messages are open. It is at most one.
func (s State) OpenCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

// HasError reports whether a failure is being surfaced.
func (s State) HasError() bool {
	return s.Error != ""
}
