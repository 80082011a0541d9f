// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"reflect"
	"testing"
	"time"

	"github.com/jeranaias/crewchat/internal/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func step(desc string, order int) model.ThinkingStep {
	return model.ThinkingStep{StepType: "analysis", Description: desc, StepOrder: order}
}

func TestHappyPathTurn(t *testing.T) {
	s := Initial("conv-1")
	s = Submit(s, model.NewUserMessage("u1", "hello", t0))

	if len(s.Messages) != 1 || s.Messages[0].Content != "hello" {
		t.Fatalf("Messages = %+v, want one user message", s.Messages)
	}
	if !s.IsLoading || !s.IsThinking || s.Phase != PhaseThinking {
		t.Fatalf("after submit: loading=%v thinking=%v phase=%v", s.IsLoading, s.IsThinking, s.Phase)
	}

	s = ReceiveStep(s, step("Understanding", 1))
	if s.CurrentThinkingStep != "Understanding" {
		t.Errorf("CurrentThinkingStep = %q, want %q", s.CurrentThinkingStep, "Understanding")
	}
	if len(s.ThinkingSteps) != 1 {
		t.Errorf("len(ThinkingSteps) = %d, want 1", len(s.ThinkingSteps))
	}

	s = FirstChunk(s, "a1", "", t0)
	s = AppendChunk(s, "Hi")
	if len(s.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(s.Messages))
	}
	if got := s.Messages[1]; got.Role != model.RoleAssistant || got.Content != "Hi" {
		t.Errorf("assistant = %+v, want role assistant content Hi", got)
	}
	if s.IsThinking {
		t.Error("IsThinking should be false once content starts")
	}

	s = AppendChunk(s, " there")
	if got := s.Messages[1].Content; got != "Hi there" {
		t.Errorf("Content = %q, want %q", got, "Hi there")
	}

	s = Complete(s)
	if s.IsLoading || s.Phase != PhaseIdle {
		t.Errorf("after complete: loading=%v phase=%v", s.IsLoading, s.Phase)
	}
	last := s.Messages[1]
	if last.IsStreaming {
		t.Error("assistant message should be sealed")
	}
	if len(last.ThinkingSteps) != 1 {
		t.Errorf("sealed ThinkingSteps = %d, want 1", len(last.ThinkingSteps))
	}
	if len(s.ThinkingSteps) != 0 || s.CurrentThinkingStep != "" {
		t.Errorf("live steps not cleared: %v %q", s.ThinkingSteps, s.CurrentThinkingStep)
	}
}

func TestSubmitWhileLoadingRejected(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "one", t0))
	before := s.Clone()

	s = Submit(s, model.NewUserMessage("u2", "two", t0))
	if !reflect.DeepEqual(s, before) {
		t.Errorf("state changed on rejected submit:\n got %+v\nwant %+v", s, before)
	}
}

func TestZeroContentTurn(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = ReceiveStep(s, step("Looking", 1))
	s = CompleteThinking(s)
	s = Complete(s)

	if len(s.Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1 (no assistant message)", len(s.Messages))
	}
	if s.IsLoading || s.IsThinking {
		t.Errorf("loading=%v thinking=%v, want both false", s.IsLoading, s.IsThinking)
	}
}

func TestFailPreservesPartialOutput(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = FirstChunk(s, "a1", "", t0)
	s = AppendChunk(s, "partial")
	s = Fail(s, "boom")

	if s.Error != "boom" {
		t.Errorf("Error = %q, want boom", s.Error)
	}
	if s.IsLoading || s.IsThinking || s.Phase != PhaseIdle {
		t.Errorf("fail left turn active: %+v", s)
	}
	if got := s.Messages[1]; got.Content != "partial" || got.IsStreaming {
		t.Errorf("partial message = %+v", got)
	}

	s = ClearError(s)
	if s.HasError() {
		t.Error("ClearError did not clear")
	}
}

func TestFailDefaultMessage(t *testing.T) {
	s := Fail(Initial("c"), "")
	if s.Error != DefaultErrorMessage {
		t.Errorf("Error = %q, want %q", s.Error, DefaultErrorMessage)
	}
}

func TestSubmitClearsError(t *testing.T) {
	s := Fail(Initial("c"), "old")
	s = Submit(s, model.NewUserMessage("u1", "retry", t0))
	if s.Error != "" {
		t.Errorf("Error = %q, want empty", s.Error)
	}
}

func TestTransitionsAreTotal(t *testing.T) {
	idle := Initial("c")
	cases := map[string]func(State) State{
		"ReceiveStep":      func(s State) State { return ReceiveStep(s, step("x", 1)) },
		"CompleteThinking": CompleteThinking,
		"ShowPlaceholder":  func(s State) State { return ShowPlaceholder(s, "x") },
		"FirstChunk":       func(s State) State { return FirstChunk(s, "a", "", t0) },
		"AppendChunk":      func(s State) State { return AppendChunk(s, "x") },
		"TagCrew":          func(s State) State { return TagCrew(s, "x") },
		"Complete":         Complete,
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if got := fn(idle); !reflect.DeepEqual(got, idle) {
				t.Errorf("%s on idle changed state: %+v", name, got)
			}
		})
	}
}

func TestAppendChunkWithoutOpenMessage(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	got := AppendChunk(s, "lost")
	if !reflect.DeepEqual(got, s) {
		t.Error("AppendChunk before FirstChunk should be a no-op")
	}
}

func TestAtMostOneOpenMessage(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = FirstChunk(s, "a1", "", t0)
	s = FirstChunk(s, "a2", "", t0)
	if n := s.OpenCount(); n != 1 {
		t.Errorf("OpenCount = %d, want 1", n)
	}
	if len(s.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(s.Messages))
	}
}

func TestStepsAfterContentKept(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = ReceiveStep(s, step("one", 1))
	s = FirstChunk(s, "a1", "", t0)
	s = ReceiveStep(s, step("two", 2))

	if len(s.ThinkingSteps) != 2 {
		t.Errorf("live steps = %d, want 2", len(s.ThinkingSteps))
	}
	if n := len(s.Messages[1].ThinkingSteps); n != 1 {
		t.Errorf("message snapshot steps = %d, want 1", n)
	}
}

func TestPlaceholder(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))

	s = ShowPlaceholder(s, "Analyzing")
	if s.CurrentThinkingStep != "Analyzing" || !s.PlaceholderStep {
		t.Fatalf("placeholder not shown: %q %v", s.CurrentThinkingStep, s.PlaceholderStep)
	}
	s = ShowPlaceholder(s, "Reviewing")
	if s.CurrentThinkingStep != "Reviewing" {
		t.Errorf("placeholder did not cycle: %q", s.CurrentThinkingStep)
	}

	s = ReceiveStep(s, step("Real step", 1))
	s = ShowPlaceholder(s, "Ignored")
	if s.CurrentThinkingStep != "Real step" || s.PlaceholderStep {
		t.Errorf("server step overridden: %q", s.CurrentThinkingStep)
	}
}

func TestPlaceholderClearedByContent(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = ShowPlaceholder(s, "Analyzing")
	s = FirstChunk(s, "a1", "", t0)
	if s.CurrentThinkingStep != "" {
		t.Errorf("CurrentThinkingStep = %q, want empty", s.CurrentThinkingStep)
	}
}

func TestTagCrew(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = FirstChunk(s, "a1", "general", t0)
	s = TagCrew(s, "tax")
	if got := s.Messages[1].CrewMember; got != "tax" {
		t.Errorf("CrewMember = %q, want tax", got)
	}
}

func TestNewChatIdempotent(t *testing.T) {
	s := Submit(Initial("old"), model.NewUserMessage("u1", "hi", t0))
	once := NewChat(s, "fresh")
	twice := NewChat(once, "fresh")
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("NewChat not idempotent:\n%+v\n%+v", once, twice)
	}
	if once.ConversationID != "fresh" || len(once.Messages) != 0 || once.HasStartedChat {
		t.Errorf("NewChat state = %+v", once)
	}

	direct := NewChat(s, "b")
	chained := NewChat(NewChat(s, "a"), "b")
	if !reflect.DeepEqual(direct, chained) {
		t.Errorf("NewChat(NewChat(s, a), b) != NewChat(s, b):\n%+v\n%+v", chained, direct)
	}
}

func TestLoadHistory(t *testing.T) {
	msgs := []model.Message{
		model.NewUserMessage("1", "q", t0),
		{ID: "2", Role: model.RoleAssistant, Content: "a", Timestamp: t0, ThinkingSteps: []model.ThinkingStep{step("s", 1)}},
	}

	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = LoadHistory(s, "other", msgs)

	if !reflect.DeepEqual(s.Messages, msgs) {
		t.Errorf("Messages = %+v, want %+v", s.Messages, msgs)
	}
	if s.ConversationID != "other" || !s.HasStartedChat {
		t.Errorf("id=%q started=%v", s.ConversationID, s.HasStartedChat)
	}
	if s.IsLoading || s.Phase != PhaseIdle || len(s.ThinkingSteps) != 0 {
		t.Errorf("history load left turn state: %+v", s)
	}

	msgs[0].Content = "mutated"
	if s.Messages[0].Content != "q" {
		t.Error("LoadHistory aliased the caller's slice")
	}

	empty := LoadHistory(s, "e", []model.Message{})
	if empty.HasStartedChat {
		t.Error("HasStartedChat should be false for empty history")
	}
}

func TestTransitionsDoNotAliasInput(t *testing.T) {
	s := Submit(Initial("c"), model.NewUserMessage("u1", "hi", t0))
	s = FirstChunk(s, "a1", "", t0)
	before := s.Clone()

	_ = AppendChunk(s, "x")
	_ = ReceiveStep(s, step("y", 1))
	_ = Complete(s)

	if !reflect.DeepEqual(s, before) {
		t.Error("transition wrote through to its input state")
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{PhaseIdle, "idle"},
		{PhaseThinking, "thinking"},
		{PhaseStreaming, "streaming"},
		{Phase(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
