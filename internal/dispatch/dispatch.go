// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch routes decoded stream events to typed callbacks for one turn.
//
// Callbacks run synchronously, in exactly the order events are dispatched.
// The first content chunk of a turn fires OnFirstChunk before OnChunk, and a
// turn that never produced content finishes without it.
package dispatch

import (
	"unicode/utf8"

	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/sse"
)

// Handlers are the effects a turn's events can have. Nil handlers are skipped.
type Handlers struct {
	OnThinkingStep     func(step model.ThinkingStep)
	OnThinkingComplete func()
	OnFirstChunk       func()
	OnChunk            func(text string)
	OnError            func(message string)
	OnCrewInfo         func(member model.CrewMember)
	OnCrewTransition   func(t model.CrewTransition)
	OnComplete         func(sawContent bool)
}

// Dispatcher holds per-turn dispatch state. Create one per turn.
// It is not safe for concurrent use.
type Dispatcher struct {
	h        Handlers
	sawChunk bool
	finished bool
	chars    int
	steps    int
}

// New creates a dispatcher for one turn.
func New(h Handlers) *Dispatcher {
	return &Dispatcher{h: h}
}

// Dispatch applies one event. It returns true when the event ended the turn
// (a server error), after which the caller should stop reading.
// Events arriving after the turn has finished are ignored.
func (d *Dispatcher) Dispatch(ev sse.Event) bool {
	if d.finished {
		return true
	}

	switch ev.Kind {
	case sse.KindThinkingStep:
		d.steps++
		if d.h.OnThinkingStep != nil {
			d.h.OnThinkingStep(ev.Step)
		}
	case sse.KindThinkingComplete:
		if d.h.OnThinkingComplete != nil {
			d.h.OnThinkingComplete()
		}
	case sse.KindChunk:
		if !d.sawChunk {
			d.sawChunk = true
			if d.h.OnFirstChunk != nil {
				d.h.OnFirstChunk()
			}
		}
		d.chars += utf8.RuneCountInString(ev.Chunk)
		if d.h.OnChunk != nil {
			d.h.OnChunk(ev.Chunk)
		}
	case sse.KindError:
		d.finished = true
		if d.h.OnError != nil {
			d.h.OnError(ev.Error)
		}
		return true
	case sse.KindCrewInfo:
		if d.h.OnCrewInfo != nil {
			d.h.OnCrewInfo(ev.Crew)
		}
	case sse.KindCrewTransition:
		if d.h.OnCrewTransition != nil {
			d.h.OnCrewTransition(ev.Transition)
		}
	case sse.KindFunctionCall, sse.KindFunctionResult:
		// Reserved; no effect.
	}
	return false
}

// Finish delivers the terminal signal (sentinel or natural close).
// It fires OnComplete at most once and never after an error.
func (d *Dispatcher) Finish() {
	if d.finished {
		return
	}
	d.finished = true
	if d.h.OnComplete != nil {
		d.h.OnComplete(d.sawChunk)
	}
}

// Abort ends the turn without firing any callback. Used when the turn was
// abandoned or failed outside the event stream.
func (d *Dispatcher) Abort() {
	d.finished = true
}

// SawContent reports whether any chunk has been dispatched.
func (d *Dispatcher) SawContent() bool {
	return d.sawChunk
}

// StepCount returns the number of thinking steps dispatched.
func (d *Dispatcher) StepCount() int {
	return d.steps
}

// ContentChars returns the number of content characters dispatched.
func (d *Dispatcher) ContentChars() int {
	return d.chars
}

// Finished reports whether the turn has ended.
func (d *Dispatcher) Finished() bool {
	return d.finished
}
