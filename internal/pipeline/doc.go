// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline runs one conversational turn end to end.
//
// A turn appends the user message, opens the event stream, and drives the
// decoder and dispatcher into the chat machine and crew overlay in arrival
// order until the stream ends or fails. Only one turn may be in flight per
// Sender; a second Send is rejected, never queued.
//
// Each turn is tagged with the conversation id it was opened against. Events
// that arrive after the user navigated away are discarded and the stream is
// torn down. A stall watchdog and an explicit Cancel bound the lifetime of
// the network read.
//
// # Key Types
//
//   - Sender: owns the in-flight guard and the current turn's cancel func
//   - Deps: collaborators injected from the session
//   - Result: per-turn counters returned by Send
//
// # Usage
//
//	sender := pipeline.New(pipeline.Deps{
//	    Stream:        client,
//	    Machine:       machine,
//	    Conversations: coordinator,
//	    Crew:          overlay,
//	    AgentName:     profile.AgentName,
//	})
//	res, err := sender.Send(ctx, "What is my tax bracket?")
package pipeline
