// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/crewchat/internal/chat"
	"github.com/jeranaias/crewchat/internal/conversation"
	"github.com/jeranaias/crewchat/internal/crew"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/pipeline"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one agent's wired chat core: the chat machine, conversation
// coordinator, crew overlay and send pipeline over a shared Context.
type Session struct {
	*Context

	Machine       *chat.Machine
	Conversations *conversation.Coordinator
	Crew          *crew.Overlay
	Sender        *pipeline.Sender
}

// New wires the core components. Nothing touches the network until Open.
func New(c *Context) *Session {
	stream := c.Config.Stream

	coord := conversation.NewCoordinator(conversation.Deps{
		API:                c.API,
		Scope:              c.Scope,
		AgentName:          c.AgentName(),
		UserID:             c.UserID,
		NewID:              c.NewID,
		Logger:             c.Logger,
		RefreshMinInterval: stream.RefreshMinInterval.Duration,
	})

	machine := chat.NewMachine(coord.ConversationID(), chat.WithIDFunc(c.NewID))

	overlay := crew.NewOverlay(crew.Deps{
		Source:    c.API,
		AgentName: c.AgentName(),
		Scope:     c.Scope,
		Logger:    c.Logger,
	})

	sender := pipeline.New(pipeline.Deps{
		Stream:           c.API,
		Machine:          machine,
		Conversations:    coord,
		Crew:             overlay,
		AgentName:        c.AgentName(),
		UserID:           c.UserID,
		UseKnowledgeBase: c.UseKnowledgeBase,
		FallbackPhrases:  c.Profile.ThinkingSteps,
		FallbackInterval: stream.FallbackInterval.Duration,
		StallTimeout:     stream.StallTimeout.Duration,
		MaxPayloadBytes:  stream.MaxPayloadBytes,
		Logger:           c.Logger,
		NewID:            c.NewID,
	})

	return &Session{
		Context:       c,
		Machine:       machine,
		Conversations: coord,
		Crew:          overlay,
		Sender:        sender,
	}
}

// Open provisions the user, loads the crew roster, restores the stored
// conversation and fetches the conversation list. Failures along the way
// are logged and leave the session usable.
func (s *Session) Open(ctx context.Context) {
	s.EnsureUser(ctx)
	s.Crew.Load(ctx)

	id := s.Conversations.ConversationID()
	msgs, err := s.Conversations.SwitchToChat(ctx, id)
	s.apply(id, msgs)
	if err != nil {
		s.Logger.Debug("SESSION_RESTORE_EMPTY", "id", id, "error", err)
	}

	if s.Profile.Features.HasChatHistory {
		_ = s.Conversations.LoadConversations(ctx)
	}
	s.Logger.Info("SESSION_OPEN", "agent", s.AgentName(), "conversation", id,
		"messages", len(msgs), "crew", len(s.Crew.Roster()))
}

// SwitchTo abandons any in-flight turn and shows conversation id. A failed
// history fetch leaves an empty chat for id and is returned.
func (s *Session) SwitchTo(ctx context.Context, id string) error {
	s.Sender.Abandon()
	msgs, err := s.Conversations.SwitchToChat(ctx, id)
	s.apply(id, msgs)
	return err
}

// NewChat abandons any in-flight turn and starts a fresh conversation.
func (s *Session) NewChat() string {
	s.Sender.Abandon()
	id := s.Conversations.CreateNewChat()
	s.Machine.NewChat(id)
	return id
}

// Delete removes a conversation. Deleting the active one resets the view
// to the replacement id.
func (s *Session) Delete(ctx context.Context, id string) error {
	wasActive := id == s.Conversations.ConversationID()
	if wasActive {
		s.Sender.Abandon()
	}
	active, err := s.Conversations.DeleteChat(ctx, id)
	if err != nil {
		return err
	}
	if wasActive {
		s.Machine.NewChat(active)
	}
	return nil
}

// Rename sets a conversation title.
func (s *Session) Rename(ctx context.Context, id, title string) error {
	return s.Conversations.UpdateTitle(ctx, id, title)
}

// Send runs one turn.
func (s *Session) Send(ctx context.Context, text string) (pipeline.Result, error) {
	return s.Sender.Send(ctx, text)
}

// Close stops any in-flight turn and waits for background refreshes.
func (s *Session) Close() {
	s.Sender.Abandon()
	s.Conversations.Wait()
}

func (s *Session) apply(id string, msgs []model.Message) {
	if len(msgs) > 0 {
		s.Machine.LoadHistory(id, msgs)
		return
	}
	s.Machine.NewChat(id)
}
