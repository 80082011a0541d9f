// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent server.
//
// The server exposes one streaming endpoint (the chat turn, answered as a
// server-sent event stream) and a set of JSON endpoints for conversation
// history, user identity, crew rosters and knowledge bases. All requests are
// scoped by context; idempotent reads are retried with exponential backoff on
// transport errors and 5xx responses.
//
// # Key Types
//
//   - Client: thread-safe API client
//   - ClientConfig: base URL, timeouts, retry policy
//   - ClientError: categorized failure with HTTP status when known
//   - StreamRequest: body of a chat turn
//
// # Usage
//
//	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: url})
//	body, err := client.OpenStream(ctx, api.StreamRequest{
//	    Message:        "hello",
//	    ConversationID: convID,
//	    AgentName:      "freeda",
//	})
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//	dec := sse.NewDecoder(body)
package api
