// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// =============================================================================
// STREAMING
// =============================================================================

// OpenStream starts a chat turn and returns the raw event-stream body.
// The caller must close it. No retry: a turn is not idempotent.
func (c *Client) OpenStream(ctx context.Context, r StreamRequest) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "finance-assistant", "stream"), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.log.Debug("STREAM_OPEN", "conversation", r.ConversationID, "agent", r.AgentName,
		"kb", r.UseKnowledgeBase, "override", r.OverrideCrewMember)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		typ := ErrTypeStatus
		if resp.StatusCode == http.StatusNotFound {
			typ = ErrTypeNotFound
		}
		return nil, &ClientError{
			Type:       typ,
			Message:    fmt.Sprintf("Network response was not ok: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.Body == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "No response body"}
	}
	return resp.Body, nil
}
