// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind identifies the semantic kind of a stream event.
type EventKind int

const (
	KindThinkingStep EventKind = iota + 1
	KindThinkingComplete
	KindChunk
	KindError
	KindFunctionCall
	KindFunctionResult
	KindCrewInfo
	KindCrewTransition
)

// Wire values of the "type" field.
const (
	TypeThinkingStep     = "thinking_step"
	TypeThinkingComplete = "thinking_complete"
	TypeFunctionCall     = "function_call"
	TypeFunctionResult   = "function_result"
	TypeCrewInfo         = "crew_info"
	TypeCrewTransition   = "crew_transition"
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case KindThinkingStep:
		return TypeThinkingStep
	case KindThinkingComplete:
		return TypeThinkingComplete
	case KindChunk:
		return "chunk"
	case KindError:
		return "error"
	case KindFunctionCall:
		return TypeFunctionCall
	case KindFunctionResult:
		return TypeFunctionResult
	case KindCrewInfo:
		return TypeCrewInfo
	case KindCrewTransition:
		return TypeCrewTransition
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one decoded stream record. Only the field matching Kind is set.
type Event struct {
	Kind       EventKind
	Step       model.ThinkingStep
	Chunk      string
	Error      string
	Crew       model.CrewMember
	Transition model.CrewTransition
}

// =============================================================================
// PARSE RESULT
// =============================================================================

// ResultKind tags the outcome of parsing one payload.
type ResultKind int

const (
	// ResultSkip means the payload is well-formed but carries nothing to act on.
	ResultSkip ResultKind = iota
	// ResultEvent means Result.Event holds a typed event.
	ResultEvent
	// ResultError means the payload is malformed; Result.Err says why.
	ResultError
)

// Result is the tagged outcome of Parse.
type Result struct {
	Kind  ResultKind
	Event Event
	Err   error
}

// ErrMalformed is wrapped by every ResultError.
var ErrMalformed = errors.New("malformed payload")

// wirePayload mirrors every field any record shape may carry.
type wirePayload struct {
	Type       string                `json:"type"`
	Step       *model.ThinkingStep   `json:"step"`
	Chunk      *string               `json:"chunk"`
	Error      json.RawMessage       `json:"error"`
	Crew       *model.CrewMember     `json:"crew"`
	Transition *model.CrewTransition `json:"transition"`
}

// Parse classifies one payload (the text after "data: ").
// Records with a known "type" are matched first; otherwise a non-empty
// "chunk" is content and a non-empty "error" is a server failure.
func Parse(payload []byte) Result {
	var w wirePayload
	if err := json.Unmarshal(payload, &w); err != nil {
		return malformed("invalid json: %v", err)
	}

	switch w.Type {
	case TypeThinkingStep:
		if w.Step == nil {
			return malformed("thinking_step without step")
		}
		return event(Event{Kind: KindThinkingStep, Step: *w.Step})
	case TypeThinkingComplete:
		return event(Event{Kind: KindThinkingComplete})
	case TypeFunctionCall:
		return event(Event{Kind: KindFunctionCall})
	case TypeFunctionResult:
		return event(Event{Kind: KindFunctionResult})
	case TypeCrewInfo:
		if w.Crew == nil || w.Crew.Name == "" {
			return malformed("crew_info without crew name")
		}
		return event(Event{Kind: KindCrewInfo, Crew: *w.Crew})
	case TypeCrewTransition:
		if w.Transition == nil || w.Transition.To == "" {
			return malformed("crew_transition without target")
		}
		return event(Event{Kind: KindCrewTransition, Transition: *w.Transition})
	}

	if w.Chunk != nil && *w.Chunk != "" {
		return event(Event{Kind: KindChunk, Chunk: *w.Chunk})
	}
	if msg := errorText(w.Error); msg != "" {
		return event(Event{Kind: KindError, Error: msg})
	}
	return Result{Kind: ResultSkip}
}

// errorText extracts a message from the "error" field, which is normally a
// string but is accepted as {"message": "..."} or any other JSON value.
func errorText(raw json.RawMessage) string {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "{}":
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(raw))
}

func event(ev Event) Result {
	return Result{Kind: ResultEvent, Event: ev}
}

func malformed(format string, args ...interface{}) Result {
	return Result{Kind: ResultError, Err: fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))}
}
