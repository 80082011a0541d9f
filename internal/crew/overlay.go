// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package crew tracks which sub-agent of an agent's crew is speaking.
//
// The overlay loads the roster once per agent, keeps the last known current
// member across turns, and holds the user's manual override pin, which the
// send pipeline attaches to outbound turns as a routing hint. It never owns
// message content.
package crew

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/model"
)

// ErrUnknownMember is returned when an override names no roster member.
var ErrUnknownMember = errors.New("unknown crew member")

// RosterSource fetches an agent's roster. Failures yield an empty roster.
type RosterSource interface {
	GetCrew(ctx context.Context, agentName string) []model.CrewMember
}

// Deps are the overlay's collaborators.
type Deps struct {
	Source    RosterSource
	AgentName string

	// Scope persists the override pin; nil keeps it in memory only.
	Scope  *localstore.Scope
	Logger *logging.Logger
}

// Snapshot is a copy of the overlay state for display.
type Snapshot struct {
	Roster     []model.CrewMember
	Current    model.CrewMember
	HasCurrent bool
	Override   string
	HasCrew    bool
	Loading    bool
}

// =============================================================================
// OVERLAY
// =============================================================================

// Overlay owns the crew roster, current member and override pin.
type Overlay struct {
	source    RosterSource
	agentName string
	scope     *localstore.Scope
	log       *logging.Logger

	mu         sync.RWMutex
	roster     []model.CrewMember
	current    model.CrewMember
	hasCurrent bool
	override   string
	loading    bool

	subMu sync.Mutex
	subs  []func(Snapshot)
}

// NewOverlay creates an overlay with an empty roster. Call Load to fetch it.
func NewOverlay(d Deps) *Overlay {
	o := &Overlay{
		source:    d.Source,
		agentName: d.AgentName,
		scope:     d.Scope,
		log:       d.Logger,
		roster:    []model.CrewMember{},
	}
	if o.scope != nil {
		o.override = o.scope.GetString(localstore.KeyCrewOverride)
	}
	return o
}

// Load fetches the roster. The current member is initialized to the default
// (or first) member only if none is set yet. A stored override that no
// longer names a roster member is dropped.
func (o *Overlay) Load(ctx context.Context) {
	o.mu.Lock()
	o.loading = true
	o.mu.Unlock()

	roster := o.source.GetCrew(ctx, o.agentName)
	if roster == nil {
		roster = []model.CrewMember{}
	}

	o.mu.Lock()
	o.loading = false
	o.roster = roster
	if !o.hasCurrent {
		if m, ok := model.DefaultCrew(roster); ok {
			o.current = m
			o.hasCurrent = true
		}
	}
	staleOverride := ""
	if o.override != "" && len(roster) > 0 {
		if _, ok := model.FindCrew(roster, o.override); !ok {
			staleOverride = o.override
			o.override = ""
		}
	}
	o.mu.Unlock()

	if staleOverride != "" {
		o.persistOverride("")
		o.log.Info("CREW_OVERRIDE_DROPPED", "name", staleOverride)
	}
	o.log.Debug("CREW_LOADED", "agent", o.agentName, "count", len(roster))
	o.notify()
}

// Refresh reloads the roster without replacing an established current member.
func (o *Overlay) Refresh(ctx context.Context) {
	o.Load(ctx)
}

// HasCrew reports whether the agent has any crew members.
func (o *Overlay) HasCrew() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.roster) > 0
}

// Roster returns a copy of the roster.
func (o *Overlay) Roster() []model.CrewMember {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.CrewMember, len(o.roster))
	copy(out, o.roster)
	return out
}

// Current returns the last known speaking member.
func (o *Overlay) Current() (model.CrewMember, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current, o.hasCurrent
}

// CurrentName returns the current member's name, or "".
func (o *Overlay) CurrentName() string {
	m, ok := o.Current()
	if !ok {
		return ""
	}
	return m.Name
}

// Snapshot returns a copy of the overlay state.
func (o *Overlay) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	roster := make([]model.CrewMember, len(o.roster))
	copy(roster, o.roster)
	return Snapshot{
		Roster:     roster,
		Current:    o.current,
		HasCurrent: o.hasCurrent,
		Override:   o.override,
		HasCrew:    len(o.roster) > 0,
		Loading:    o.loading,
	}
}

// Subscribe registers fn for state changes.
func (o *Overlay) Subscribe(fn func(Snapshot)) {
	o.subMu.Lock()
	o.subs = append(o.subs, fn)
	o.subMu.Unlock()
}

func (o *Overlay) notify() {
	snap := o.Snapshot()
	o.subMu.Lock()
	subs := append([]func(Snapshot){}, o.subs...)
	o.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// SetCurrent records the member announced by a crew_info event.
func (o *Overlay) SetCurrent(m model.CrewMember) {
	o.mu.Lock()
	o.current = m
	o.hasCurrent = true
	o.mu.Unlock()
	o.notify()
}

// ApplyTransition resolves t.To against the roster and makes it current.
// Unknown targets are ignored. It reports whether the current member changed.
func (o *Overlay) ApplyTransition(t model.CrewTransition) bool {
	o.mu.Lock()
	m, ok := model.FindCrew(o.roster, t.To)
	if !ok {
		o.mu.Unlock()
		o.log.Debug("CREW_TRANSITION_IGNORED", "to", t.To)
		return false
	}
	o.current = m
	o.hasCurrent = true
	o.mu.Unlock()

	o.log.Info("CREW_TRANSITION", "from", t.From, "to", t.To, "reason", t.Reason)
	o.notify()
	return true
}

// =============================================================================
// OVERRIDE
// =============================================================================

// Override returns the pinned member name, or "" for automatic routing.
func (o *Overlay) Override() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.override
}

// SetOverride pins name for subsequent turns; "" returns to automatic.
// It does not change the current member. When a roster is loaded, name
// must belong to it.
func (o *Overlay) SetOverride(name string) error {
	o.mu.Lock()
	if name != "" && len(o.roster) > 0 {
		if _, ok := model.FindCrew(o.roster, name); !ok {
			o.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownMember, name)
		}
	}
	o.override = name
	o.mu.Unlock()

	o.persistOverride(name)
	o.notify()
	return nil
}

// ClearOverride returns routing to automatic.
func (o *Overlay) ClearOverride() {
	_ = o.SetOverride("")
}

func (o *Overlay) persistOverride(name string) {
	if o.scope == nil {
		return
	}
	if name == "" {
		o.scope.Remove(localstore.KeyCrewOverride)
		return
	}
	o.scope.SetString(localstore.KeyCrewOverride, name)
}
