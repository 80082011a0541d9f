// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the chat server's Server-Sent-Events stream into typed
// events.
//
// Framing is permissive: only lines starting with "data: " carry payloads,
// everything else is ignored, and malformed payloads are dropped without
// interrupting the stream. A payload equal to "[DONE]" terminates the stream.
//
// # Key Types
//
//   - Decoder: pull-based iterator over a response body (Next / Stats)
//   - Event: one typed stream event (thinking step, chunk, error, crew info, ...)
//   - Result: tagged outcome of Parse (event, skip, or error)
//
// # Usage
//
//	dec := sse.NewDecoder(resp.Body, sse.WithLogger(logger))
//	defer dec.Close()
//	for {
//	    ev, err := dec.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    handle(ev)
//	}
package sse
