// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package crew

import (
	"context"
	"errors"
	"testing"

	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/model"
)

type staticRoster struct {
	roster []model.CrewMember
	calls  int
}

func (s *staticRoster) GetCrew(ctx context.Context, agentName string) []model.CrewMember {
	s.calls++
	return s.roster
}

func TestCrewTransitions(t *testing.T) {
	src := &staticRoster{roster: []model.CrewMember{
		{Name: "a", IsDefault: true},
		{Name: "b"},
	}}
	o := NewOverlay(Deps{Source: src, AgentName: "freeda"})
	o.Load(context.Background())

	if got := o.CurrentName(); got != "a" {
		t.Fatalf("CurrentName() = %q, want %q", got, "a")
	}

	if !o.ApplyTransition(model.CrewTransition{From: "a", To: "b"}) {
		t.Error("ApplyTransition(b) = false, want true")
	}
	if got := o.CurrentName(); got != "b" {
		t.Errorf("CurrentName() = %q, want %q", got, "b")
	}

	if o.ApplyTransition(model.CrewTransition{From: "b", To: "z"}) {
		t.Error("ApplyTransition(z) = true, want false")
	}
	if got := o.CurrentName(); got != "b" {
		t.Errorf("CurrentName() after unknown = %q, want %q", got, "b")
	}
}

func TestDefaultFallsBackToFirst(t *testing.T) {
	src := &staticRoster{roster: []model.CrewMember{{Name: "x"}, {Name: "y"}}}
	o := NewOverlay(Deps{Source: src})
	o.Load(context.Background())
	if got := o.CurrentName(); got != "x" {
		t.Errorf("CurrentName() = %q, want %q", got, "x")
	}
}

func TestReloadKeepsCurrent(t *testing.T) {
	src := &staticRoster{roster: []model.CrewMember{{Name: "a", IsDefault: true}, {Name: "b"}}}
	o := NewOverlay(Deps{Source: src})
	o.Load(context.Background())
	o.ApplyTransition(model.CrewTransition{To: "b"})

	o.Refresh(context.Background())
	if got := o.CurrentName(); got != "b" {
		t.Errorf("CurrentName() after refresh = %q, want %q", got, "b")
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
}

func TestEmptyRosterIsInert(t *testing.T) {
	o := NewOverlay(Deps{Source: &staticRoster{}})
	o.Load(context.Background())

	if o.HasCrew() {
		t.Error("HasCrew() = true, want false")
	}
	if _, ok := o.Current(); ok {
		t.Error("Current() should be unset")
	}
	if o.ApplyTransition(model.CrewTransition{To: "a"}) {
		t.Error("transition applied without roster")
	}
	if o.Roster() == nil {
		t.Error("Roster() should be empty, not nil")
	}
}

func TestSetCurrentFromCrewInfo(t *testing.T) {
	o := NewOverlay(Deps{Source: &staticRoster{}})
	o.SetCurrent(model.CrewMember{Name: "tax", DisplayName: "Tax Expert"})
	m, ok := o.Current()
	if !ok || m.Label() != "Tax Expert" {
		t.Errorf("Current() = %+v, %v", m, ok)
	}
}

func TestOverride(t *testing.T) {
	src := &staticRoster{roster: []model.CrewMember{{Name: "a", IsDefault: true}, {Name: "b"}}}
	store := localstore.NewMemory()
	o := NewOverlay(Deps{Source: src, Scope: localstore.NewScope(store, "freeda_", nil)})
	o.Load(context.Background())

	if err := o.SetOverride("b"); err != nil {
		t.Fatalf("SetOverride(b) error = %v", err)
	}
	if o.Override() != "b" {
		t.Errorf("Override() = %q, want b", o.Override())
	}
	if o.CurrentName() != "a" {
		t.Errorf("override changed current to %q", o.CurrentName())
	}
	if v, _, _ := store.Get("freeda_crew_override"); v != "b" {
		t.Errorf("stored override = %q, want b", v)
	}

	if err := o.SetOverride("nobody"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("SetOverride(nobody) error = %v, want ErrUnknownMember", err)
	}

	// A fresh overlay restores the pin.
	o2 := NewOverlay(Deps{Source: src, Scope: localstore.NewScope(store, "freeda_", nil)})
	if o2.Override() != "b" {
		t.Errorf("restored Override() = %q, want b", o2.Override())
	}

	o.ClearOverride()
	if o.Override() != "" {
		t.Errorf("Override() after clear = %q", o.Override())
	}
	if _, ok, _ := store.Get("freeda_crew_override"); ok {
		t.Error("cleared override still stored")
	}
}

func TestStaleStoredOverrideDropped(t *testing.T) {
	store := localstore.NewMemory()
	_ = store.Set("freeda_crew_override", "retired")
	o := NewOverlay(Deps{
		Source: &staticRoster{roster: []model.CrewMember{{Name: "a"}}},
		Scope:  localstore.NewScope(store, "freeda_", nil),
	})
	o.Load(context.Background())
	if o.Override() != "" {
		t.Errorf("Override() = %q, want empty", o.Override())
	}
}

func TestSubscribe(t *testing.T) {
	src := &staticRoster{roster: []model.CrewMember{{Name: "a"}}}
	o := NewOverlay(Deps{Source: src})
	var last Snapshot
	calls := 0
	o.Subscribe(func(s Snapshot) { last = s; calls++ })

	o.Load(context.Background())
	if calls != 1 || !last.HasCrew || last.Current.Name != "a" {
		t.Errorf("snapshot = %+v after %d calls", last, calls)
	}
}
