// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// CONVERSATIONS
// =============================================================================

// GetHistory fetches the messages of one conversation in server order.
func (c *Client) GetHistory(ctx context.Context, conversationID string) ([]model.Message, error) {
	var resp historyResponse
	if err := c.getJSON(ctx, c.endpoint("api", "conversation", pathEscape(conversationID), "history"), &resp); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		steps := m.ThinkingSteps
		if steps == nil {
			steps = []model.ThinkingStep{}
		}
		msgs = append(msgs, model.Message{
			ID:            string(m.ID),
			Role:          model.Role(m.Role),
			Content:       m.Content,
			Timestamp:     parseTime(m.CreatedAt),
			ThinkingSteps: steps,
		})
	}
	return msgs, nil
}

// ListConversations fetches the user's conversations for one agent.
func (c *Client) ListConversations(ctx context.Context, userID, agentName string) ([]model.Conversation, error) {
	target := c.endpoint("api", "user", pathEscape(userID), "conversations") +
		"?agentName=" + url.QueryEscape(agentName)

	var resp conversationsResponse
	if err := c.getJSON(ctx, target, &resp); err != nil {
		return nil, err
	}

	convs := make([]model.Conversation, 0, len(resp.Conversations))
	for _, cv := range resp.Conversations {
		convs = append(convs, model.Conversation{
			ID:           cv.ExternalID,
			Title:        cv.Title,
			MessageCount: cv.MessageCount,
			CreatedAt:    parseTime(cv.CreatedAt),
			UpdatedAt:    parseTime(cv.UpdatedAt),
		})
	}
	return convs, nil
}

// UpdateTitle renames a conversation.
func (c *Client) UpdateTitle(ctx context.Context, conversationID, title string) error {
	return c.doJSON(ctx, http.MethodPatch, c.endpoint("api", "conversation", pathEscape(conversationID)),
		titleRequest{Title: title}, nil)
}

// DeleteConversation deletes a conversation on the server.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.endpoint("api", "conversation", pathEscape(conversationID)), nil, nil)
}

// =============================================================================
// USERS AND CREW
// =============================================================================

// CreateUser mints an anonymous user id.
func (c *Client) CreateUser(ctx context.Context) (User, error) {
	var resp userResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("api", "user", "create"), nil, &resp); err != nil {
		return User{}, err
	}
	if resp.UserID == "" {
		return User{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "server returned empty user id"}
	}
	return User{UserID: resp.UserID, CreatedAt: parseTime(resp.CreatedAt)}, nil
}

// GetCrew fetches an agent's crew roster. Any failure yields an empty roster;
// the error is logged.
func (c *Client) GetCrew(ctx context.Context, agentName string) []model.CrewMember {
	roster, err := c.FetchCrew(ctx, agentName)
	if err != nil {
		c.log.Warn("CREW_LOAD_FAILED", "agent", agentName, "error", err)
		return []model.CrewMember{}
	}
	return roster
}

// FetchCrew is GetCrew with the error surfaced.
func (c *Client) FetchCrew(ctx context.Context, agentName string) ([]model.CrewMember, error) {
	var resp crewResponse
	if err := c.getJSON(ctx, c.endpoint("api", "agents", pathEscape(agentName), "crew"), &resp); err != nil {
		return nil, err
	}
	if resp.Crew == nil {
		return []model.CrewMember{}, nil
	}
	return resp.Crew, nil
}
