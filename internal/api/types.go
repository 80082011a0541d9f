// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// StreamRequest is the body of a chat turn.
type StreamRequest struct {
	Message            string `json:"message"`
	ConversationID     string `json:"conversationId"`
	UseKnowledgeBase   bool   `json:"useKnowledgeBase"`
	UserID             string `json:"userId,omitempty"`
	AgentName          string `json:"agentName"`
	OverrideCrewMember string `json:"overrideCrewMember,omitempty"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type createKBRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentName   string `json:"agentName"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// flexID accepts a JSON number or string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type historyResponse struct {
	ConversationID string `json:"conversationId"`
	MessageCount   int    `json:"messageCount"`
	Messages       []struct {
		ID            flexID               `json:"id"`
		Role          string               `json:"role"`
		Content       string               `json:"content"`
		CreatedAt     string               `json:"createdAt"`
		ThinkingSteps []model.ThinkingStep `json:"thinkingSteps"`
	} `json:"messages"`
}

type conversationsResponse struct {
	UserID        string `json:"userId"`
	Count         int    `json:"count"`
	Conversations []struct {
		ExternalID   string `json:"externalId"`
		Title        string `json:"title"`
		MessageCount int    `json:"messageCount"`
		CreatedAt    string `json:"createdAt"`
		UpdatedAt    string `json:"updatedAt"`
	} `json:"conversations"`
}

type crewResponse struct {
	AgentName string             `json:"agentName"`
	Crew      []model.CrewMember `json:"crew"`
}

// User is a server-minted anonymous identity.
type User struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"-"`
}

type userResponse struct {
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

type wireKB struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentName   string `json:"agentName"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	FileCount   int    `json:"fileCount"`
	TotalSize   int64  `json:"totalSize"`
}

type kbListResponse struct {
	KnowledgeBases []wireKB `json:"knowledgeBases"`
}

type kbCreateResponse struct {
	Success       bool   `json:"success"`
	KnowledgeBase wireKB `json:"knowledgeBase"`
}

type kbFilesResponse struct {
	KnowledgeBaseID int64 `json:"knowledgeBaseId"`
	Files           []struct {
		ID           flexID   `json:"id"`
		OpenAIFileID string   `json:"openaiFileId"`
		FileName     string   `json:"fileName"`
		FileSize     int64    `json:"fileSize"`
		FileType     string   `json:"fileType"`
		Tags         []string `json:"tags"`
		Status       string   `json:"status"`
		CreatedAt    string   `json:"createdAt"`
		UpdatedAt    string   `json:"updatedAt"`
	} `json:"files"`
}

type uploadErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// parseTime accepts RFC 3339 with or without fractional seconds.
// Unparseable values become the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (kb wireKB) toModel() model.KnowledgeBase {
	return model.KnowledgeBase{
		ID:          kb.ID,
		Name:        kb.Name,
		Description: kb.Description,
		AgentName:   kb.AgentName,
		FileCount:   kb.FileCount,
		TotalSize:   kb.TotalSize,
		CreatedAt:   parseTime(kb.CreatedAt),
		UpdatedAt:   parseTime(kb.UpdatedAt),
	}
}
