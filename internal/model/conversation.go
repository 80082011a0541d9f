// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

// Conversation is the list-view summary of a stored conversation.
// It is independent of the live message list and refreshed from the server.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayTitle returns the title, or a placeholder for untitled conversations.
func (c Conversation) DisplayTitle() string {
	if c.Title == "" {
		return "New conversation"
	}
	return c.Title
}

// SortConversations orders conversations most recently updated first.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

// FindConversation returns the index of id in convs, or -1.
func FindConversation(convs []Conversation, id string) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}
