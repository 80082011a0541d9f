// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// =============================================================================
// JSON RESPONSE ENVELOPE
// =============================================================================

// JSONResponse is the envelope for --json output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Command   string      `json:"command"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewJSONResponse creates a success envelope.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// NewJSONErrorResponse creates a failure envelope.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     err.Error(),
	}
}

// Fprint writes the envelope as indented JSON.
func (r *JSONResponse) Fprint(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// =============================================================================
// DATA SHAPES
// =============================================================================

// ConversationData is one row of `history --json`.
type ConversationData struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Active       bool      `json:"active"`
}

// CrewData is the `crew --json` payload.
type CrewData struct {
	Agent    string       `json:"agent"`
	Override string       `json:"override,omitempty"`
	Members  []CrewMember `json:"members"`
}

// CrewMember is one roster row.
type CrewMember struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"isDefault"`
	ToolCount   int    `json:"toolCount"`
}

// AgentData is one row of `agents --json`.
type AgentData struct {
	ID          string `json:"id"`
	AgentName   string `json:"agentName"`
	DisplayName string `json:"displayName"`
	BaseURL     string `json:"baseUrl"`
	Default     bool   `json:"default"`
}
