// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/util"
)

// ErrBusy is returned by Submit while a turn is loading.
var ErrBusy = errors.New("a turn is already in progress")

// =============================================================================
// MACHINE
// =============================================================================

// Machine owns one State and applies transitions to it one at a time.
// Subscribers receive a deep-copied snapshot after every transition, called
// outside the lock in registration order.
type Machine struct {
	mu      sync.Mutex
	state   State
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	order   []int
	nextSub int

	now   func() time.Time
	newID util.IDFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDFunc overrides the message id generator.
func WithIDFunc(fn util.IDFunc) Option {
	return func(m *Machine) { m.newID = fn }
}

// NewMachine creates a machine in the initial state for conversationID.
func NewMachine(conversationID string, opts ...Option) *Machine {
	m := &Machine{
		state: Initial(conversationID),
		subs:  make(map[int]func(State)),
		now:   time.Now,
		newID: util.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a deep copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Version increments on every applied transition.
func (m *Machine) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// ConversationID returns the conversation currently shown.
func (m *Machine) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ConversationID
}

// IsLoading reports whether a turn is in progress.
func (m *Machine) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.IsLoading
}

// Subscribe registers fn for state snapshots. The returned function removes it.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.order = append(m.order, id)
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; !ok {
			return
		}
		delete(m.subs, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

// apply runs fn under the lock and notifies subscribers with the result.
func (m *Machine) apply(fn func(State) State) State {
	m.mu.Lock()
	m.state = fn(m.state)
	m.version++
	snap := m.state.Clone()
	m.mu.Unlock()

	m.notify(snap)
	return snap
}

func (m *Machine) notify(s State) {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.order))
	for _, id := range m.order {
		fns = append(fns, m.subs[id])
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Submit appends a user message with the given text and starts a turn.
func (m *Machine) Submit(text string) (model.Message, error) {
	m.mu.Lock()
	if m.state.IsLoading {
		m.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	msg := model.NewUserMessage(m.newID(), text, m.now())
	m.state = Submit(m.state, msg)
	m.version++
	snap := m.state.Clone()
	m.mu.Unlock()

	m.notify(snap)
	return msg, nil
}

// ReceiveStep records a server thinking step.
func (m *Machine) ReceiveStep(step model.ThinkingStep) {
	m.apply(func(s State) State { return ReceiveStep(s, step) })
}

// CompleteThinking records the end-of-thinking signal.
func (m *Machine) CompleteThinking() {
	m.apply(CompleteThinking)
}

// ShowPlaceholder shows a canned progress phrase.
func (m *Machine) ShowPlaceholder(text string) {
	m.apply(func(s State) State { return ShowPlaceholder(s, text) })
}

// FirstChunk opens the assistant message and returns its id.
func (m *Machine) FirstChunk(crewMember string) string {
	id := m.newID()
	now := m.now()
	m.apply(func(s State) State { return FirstChunk(s, id, crewMember, now) })
	return id
}

// AppendChunk appends text to the open assistant message.
func (m *Machine) AppendChunk(text string) {
	m.apply(func(s State) State { return AppendChunk(s, text) })
}

// TagCrew labels the open assistant message.
func (m *Machine) TagCrew(crewMember string) {
	m.apply(func(s State) State { return TagCrew(s, crewMember) })
}

// Complete ends the turn successfully.
func (m *Machine) Complete() {
	m.apply(Complete)
}

// Fail ends the turn with an error message.
func (m *Machine) Fail(message string) {
	m.apply(func(s State) State { return Fail(s, message) })
}

// ClearError dismisses the surfaced error.
func (m *Machine) ClearError() {
	m.apply(ClearError)
}

// LoadHistory replaces the shown conversation.
func (m *Machine) LoadHistory(conversationID string, messages []model.Message) {
	m.apply(func(s State) State { return LoadHistory(s, conversationID, messages) })
}

// NewChat resets to an empty conversation.
func (m *Machine) NewChat(conversationID string) {
	m.apply(func(s State) State { return NewChat(s, conversationID) })
}
