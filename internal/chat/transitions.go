// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// TURN TRANSITIONS
// =============================================================================

// DefaultErrorMessage is surfaced when a failure carries no text.
const DefaultErrorMessage = "An error occurred"

// Submit appends the user message and enters thinking. Rejected (state
// returned unchanged) while a turn is loading.
func Submit(s State, msg model.Message) State {
	if s.IsLoading {
		return s
	}
	msg.Role = model.RoleUser
	msg.IsStreaming = false

	s.Messages = appendMessage(s.Messages, msg)
	s.HasStartedChat = true
	s.Error = ""

	s.Phase = PhaseThinking
	s.IsLoading = true
	s.IsThinking = true
	s.CurrentThinkingStep = ""
	s.ThinkingSteps = []model.ThinkingStep{}
	s.ThinkingComplete = false
	s.PlaceholderStep = false
	return s
}

// ReceiveStep records a thinking step. Steps arriving after content began are
// still kept for post-hoc display.
func ReceiveStep(s State, step model.ThinkingStep) State {
	if !s.Phase.Active() {
		return s
	}
	steps := make([]model.ThinkingStep, len(s.ThinkingSteps), len(s.ThinkingSteps)+1)
	copy(steps, s.ThinkingSteps)
	s.ThinkingSteps = append(steps, step)
	s.CurrentThinkingStep = step.Description
	s.PlaceholderStep = false
	return s
}

// CompleteThinking records the server's end-of-thinking signal.
func CompleteThinking(s State) State {
	if !s.Phase.Active() {
		return s
	}
	s.ThinkingComplete = true
	return s
}

// ShowPlaceholder sets a canned progress phrase. It applies only while
// thinking and only until the first real step arrives.
func ShowPlaceholder(s State, text string) State {
	if s.Phase != PhaseThinking || len(s.ThinkingSteps) > 0 {
		return s
	}
	if s.CurrentThinkingStep != "" && !s.PlaceholderStep {
		return s
	}
	s.CurrentThinkingStep = text
	s.PlaceholderStep = true
	return s
}

// FirstChunk seals the thinking phase and opens the assistant message,
// seeded with a snapshot of the steps so far.
func FirstChunk(s State, id, crewMember string, now time.Time) State {
	if s.Phase != PhaseThinking {
		return s
	}
	msg := model.NewAssistantMessage(id, s.ThinkingSteps, now)
	msg.CrewMember = crewMember

	s.Messages = appendMessage(s.Messages, msg)
	s.Phase = PhaseStreaming
	s.IsThinking = false
	if s.PlaceholderStep {
		s.CurrentThinkingStep = ""
		s.PlaceholderStep = false
	}
	return s
}

// AppendChunk concatenates text onto the open assistant message.
// Without an open message it is a no-op.
func AppendChunk(s State, text string) State {
	if s.Phase != PhaseStreaming {
		return s
	}
	return updateOpen(s, func(m *model.Message) {
		m.Content += text
	})
}

// TagCrew labels the open assistant message with the crew member speaking.
func TagCrew(s State, crewMember string) State {
	return updateOpen(s, func(m *model.Message) {
		m.CrewMember = crewMember
	})
}

// Complete ends the turn successfully. The assistant message keeps its own
// frozen copy of the steps; the live buffer is cleared.
func Complete(s State) State {
	if !s.Phase.Active() {
		return s
	}
	s = sealOpen(s)
	s.Phase = PhaseIdle
	s.IsLoading = false
	s.IsThinking = false
	s.CurrentThinkingStep = ""
	s.ThinkingSteps = []model.ThinkingStep{}
	s.ThinkingComplete = false
	s.PlaceholderStep = false
	return s
}

// Fail ends the turn with a surfaced error. Partial output is preserved.
func Fail(s State, message string) State {
	if message == "" {
		message = DefaultErrorMessage
	}
	s = sealOpen(s)
	s.Phase = PhaseIdle
	s.IsLoading = false
	s.IsThinking = false
	s.PlaceholderStep = false
	s.Error = message
	return s
}

// ClearError dismisses the surfaced error.
func ClearError(s State) State {
	s.Error = ""
	return s
}

// =============================================================================
// RESET TRANSITIONS
// =============================================================================

// LoadHistory replaces the conversation wholesale and returns to idle.
func LoadHistory(s State, conversationID string, messages []model.Message) State {
	next := Initial(conversationID)
	if messages != nil {
		next.Messages = model.CloneMessages(messages)
		for i := range next.Messages {
			next.Messages[i].IsStreaming = false
		}
	}
	next.HasStartedChat = len(messages) > 0
	return next
}

// NewChat resets to the initial state for conversationID.
func NewChat(s State, conversationID string) State {
	return Initial(conversationID)
}

// =============================================================================
// HELPERS
// =============================================================================

func appendMessage(msgs []model.Message, msg model.Message) []model.Message {
	out := make([]model.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, msg)
}

// updateOpen rewrites the open message in a fresh slice.
func updateOpen(s State, fn func(m *model.Message)) State {
	if _, ok := s.OpenMessage(); !ok {
		return s
	}
	msgs := make([]model.Message, len(s.Messages))
	copy(msgs, s.Messages)
	fn(&msgs[len(msgs)-1])
	s.Messages = msgs
	return s
}

func sealOpen(s State) State {
	return updateOpen(s, func(m *model.Message) {
		m.IsStreaming = false
	})
}
