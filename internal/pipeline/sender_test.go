// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/chat"
	"github.com/jeranaias/crewchat/internal/crew"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/sse"
	"github.com/jeranaias/crewchat/internal/sse/ssetest"
)

// =============================================================================
// HARNESS
// =============================================================================

type fakeConvs struct {
	mu       sync.Mutex
	id       string
	observed int
}

func (f *fakeConvs) ConversationID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeConvs) ObserveMessages(ctx context.Context, count int, loading bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed++
	return true
}

func (f *fakeConvs) set(id string) {
	f.mu.Lock()
	f.id = id
	f.mu.Unlock()
}

func (f *fakeConvs) observations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observed
}

// pipeStreamer hands the turn a pipe the test writes into.
type pipeStreamer struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	reqs chan api.StreamRequest
}

func newPipeStreamer() *pipeStreamer {
	r, w := io.Pipe()
	return &pipeStreamer{r: r, w: w, reqs: make(chan api.StreamRequest, 1)}
}

func (p *pipeStreamer) OpenStream(ctx context.Context, r api.StreamRequest) (io.ReadCloser, error) {
	p.reqs <- r
	return p.r, nil
}

func (p *pipeStreamer) send(t *testing.T, v interface{}) {
	t.Helper()
	if err := ssetest.WriteData(p.w, v); err != nil {
		t.Errorf("WriteData: %v", err)
	}
}

func (p *pipeStreamer) done(t *testing.T) {
	t.Helper()
	if err := ssetest.WriteDone(p.w); err != nil {
		t.Errorf("WriteDone: %v", err)
	}
}

func sseServer(t *testing.T, handler func(w http.ResponseWriter, body api.StreamRequest)) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body api.StreamRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "text/event-stream")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})
}

func newHarness(stream Streamer, mutate func(d *Deps)) (*Sender, *chat.Machine, *fakeConvs) {
	m := chat.NewMachine("conv-1")
	convs := &fakeConvs{id: "conv-1"}
	d := Deps{
		Stream:        stream,
		Machine:       m,
		Conversations: convs,
		AgentName:     "freeda",
		StallTimeout:  5 * time.Second,
	}
	if mutate != nil {
		mutate(&d)
	}
	return New(d), m, convs
}

type sendResult struct {
	res Result
	err error
}

func sendAsync(s *Sender, text string) <-chan sendResult {
	ch := make(chan sendResult, 1)
	go func() {
		res, err := s.Send(context.Background(), text)
		ch <- sendResult{res, err}
	}()
	return ch
}

func stepPayload(desc string, order int) map[string]interface{} {
	return map[string]interface{}{
		"type": "thinking_step",
		"step": map[string]interface{}{"stepType": "analysis", "description": desc, "stepOrder": order},
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestSendFullTurn(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, stepPayload("Understanding", 1))
		ssetest.WriteData(w, map[string]string{"type": "thinking_complete"})
		ssetest.WriteData(w, map[string]string{"chunk": "Hi"})
		ssetest.WriteData(w, map[string]string{"type": "function_call"})
		ssetest.WriteData(w, map[string]string{"chunk": " there"})
		ssetest.WriteDone(w)
	})
	s, m, convs := newHarness(client, nil)

	res, err := s.Send(context.Background(), "  hello \n")
	require.NoError(t, err)
	require.True(t, res.SawContent)
	require.True(t, res.Terminated)
	require.Equal(t, 8, res.ContentChars)
	require.Equal(t, 1, res.Steps)

	st := m.State()
	require.Len(t, st.Messages, 2)
	require.Equal(t, "hello", st.Messages[0].Content)
	require.Equal(t, model.RoleAssistant, st.Messages[1].Role)
	require.Equal(t, "Hi there", st.Messages[1].Content)
	require.False(t, st.Messages[1].IsStreaming)
	require.Len(t, st.Messages[1].ThinkingSteps, 1)
	require.False(t, st.IsLoading)
	require.False(t, st.IsThinking)
	require.Empty(t, st.Error)
	require.Equal(t, 1, convs.observations())
	require.False(t, s.InFlight())
}

func TestSendNaturalCloseCompletes(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, map[string]string{"chunk": "done without sentinel"})
	})
	s, m, _ := newHarness(client, nil)

	res, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	require.False(t, res.Terminated)
	require.Equal(t, "done without sentinel", m.State().Messages[1].Content)
}

func TestSendZeroContentTurn(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, stepPayload("Searching", 1))
		ssetest.WriteDone(w)
	})
	s, m, _ := newHarness(client, nil)

	res, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.False(t, res.SawContent)

	st := m.State()
	require.Len(t, st.Messages, 1)
	require.False(t, st.IsLoading)
	require.Empty(t, st.Error)
}

func TestSendRequestFields(t *testing.T) {
	got := make(chan api.StreamRequest, 1)
	client := sseServer(t, func(w http.ResponseWriter, body api.StreamRequest) {
		got <- body
		ssetest.WriteDone(w)
	})
	overlay := crew.NewOverlay(crew.Deps{Source: staticCrew{{Name: "general", IsDefault: true}, {Name: "tax"}}})
	overlay.Load(context.Background())
	require.NoError(t, overlay.SetOverride("tax"))

	s, _, _ := newHarness(client, func(d *Deps) {
		d.Crew = overlay
		d.UserID = func() string { return "user-1" }
		d.UseKnowledgeBase = func() bool { return true }
	})

	_, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)

	req := <-got
	require.Equal(t, api.StreamRequest{
		Message:            "hello",
		ConversationID:     "conv-1",
		UseKnowledgeBase:   true,
		UserID:             "user-1",
		AgentName:          "freeda",
		OverrideCrewMember: "tax",
	}, req)
}

type staticCrew []model.CrewMember

func (s staticCrew) GetCrew(ctx context.Context, agent string) []model.CrewMember { return s }

func TestSendCrewEvents(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, map[string]interface{}{"chunk": "Routing you"})
		ssetest.WriteData(w, map[string]interface{}{
			"type":       "crew_transition",
			"transition": map[string]string{"from": "a", "to": "b", "reason": "topic"},
		})
		ssetest.WriteData(w, map[string]interface{}{
			"type":       "crew_transition",
			"transition": map[string]string{"from": "b", "to": "ghost"},
		})
		ssetest.WriteDone(w)
	})
	overlay := crew.NewOverlay(crew.Deps{Source: staticCrew{{Name: "a", IsDefault: true}, {Name: "b"}}})
	overlay.Load(context.Background())

	s, m, _ := newHarness(client, func(d *Deps) { d.Crew = overlay })
	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)

	require.Equal(t, "b", overlay.CurrentName())
	require.Equal(t, "b", m.State().Messages[1].CrewMember)
}

func TestSendServerErrorEvent(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, map[string]string{"chunk": "partial"})
		ssetest.WriteData(w, map[string]string{"error": "model overloaded"})
		ssetest.WriteData(w, map[string]string{"chunk": "ignored"})
		ssetest.WriteDone(w)
	})
	s, m, convs := newHarness(client, nil)

	_, err := s.Send(context.Background(), "hi")
	require.ErrorIs(t, err, ErrServer)

	st := m.State()
	require.Equal(t, "model overloaded", st.Error)
	require.Equal(t, "partial", st.Messages[1].Content)
	require.False(t, st.IsLoading)
	require.Equal(t, 0, convs.observations())
}

// switchingConvs reports conv-1 for the first n lookups and conv-2 after,
// as if the user switched conversations mid-turn.
type switchingConvs struct {
	fakeConvs
	calls int
	after int
}

func (f *switchingConvs) ConversationID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > f.after {
		return "conv-2"
	}
	return "conv-1"
}

func TestServerErrorAfterSwitchIsDiscarded(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, map[string]string{"error": "model overloaded"})
	})
	// One lookup admits the turn and one admits the error record; the
	// switch lands before the failure is applied.
	convs := &switchingConvs{after: 2}
	s, m, _ := newHarness(client, func(d *Deps) { d.Conversations = convs })

	_, err := s.Send(context.Background(), "hi")
	require.ErrorIs(t, err, ErrTurnAbandoned)
	require.Empty(t, m.State().Error)
}

func TestResultCarriesStreamStats(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, _ api.StreamRequest) {
		ssetest.WriteData(w, map[string]string{"chunk": "Hi"})
		io.WriteString(w, "data: {not json}\n\n")
		ssetest.WriteDone(w)
	})
	s, _, _ := newHarness(client, nil)

	res, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, 1, res.Stream.Events)
	require.Equal(t, 1, res.Stream.Dropped)
	require.Positive(t, res.Stream.Bytes)
}

func TestSendHTTPErrorBeforeFirstByte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})
	s, m, _ := newHarness(client, nil)

	_, err := s.Send(context.Background(), "hi")
	require.Error(t, err)

	st := m.State()
	require.Equal(t, "Network response was not ok: 500", st.Error)
	require.Len(t, st.Messages, 1)
	require.False(t, st.IsLoading)
	require.False(t, st.IsThinking)
}

func TestSendRejectsEmpty(t *testing.T) {
	s, m, _ := newHarness(newPipeStreamer(), nil)
	_, err := s.Send(context.Background(), " \n\t")
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Empty(t, m.State().Messages)
}

func TestSendWhileInFlightRejected(t *testing.T) {
	p := newPipeStreamer()
	s, m, _ := newHarness(p, nil)

	first := sendAsync(s, "one")
	<-p.reqs

	_, err := s.Send(context.Background(), "two")
	require.ErrorIs(t, err, ErrTurnInFlight)
	require.Len(t, m.State().Messages, 1)

	p.done(t)
	r := <-first
	require.NoError(t, r.err)
	require.False(t, s.InFlight())
}

func TestCancel(t *testing.T) {
	p := newPipeStreamer()
	s, m, _ := newHarness(p, nil)

	ch := sendAsync(s, "hi")
	<-p.reqs
	require.True(t, s.Cancel())

	r := <-ch
	require.ErrorIs(t, r.err, ErrCanceled)

	st := m.State()
	require.Equal(t, "request cancelled", st.Error)
	require.False(t, st.IsLoading)
	require.False(t, s.Cancel())
}

func TestWatchdogFailsStalledStream(t *testing.T) {
	p := newPipeStreamer()
	s, m, _ := newHarness(p, func(d *Deps) { d.StallTimeout = 50 * time.Millisecond })

	ch := sendAsync(s, "hi")
	<-p.reqs

	select {
	case r := <-ch:
		require.ErrorIs(t, r.err, ErrStalled)
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog did not fire")
	}
	st := m.State()
	require.Equal(t, ErrStalled.Error(), st.Error)
	require.False(t, st.IsLoading)
}

func TestAbandonedTurnDiscardsEvents(t *testing.T) {
	p := newPipeStreamer()
	s, m, convs := newHarness(p, nil)

	ch := sendAsync(s, "hi")
	<-p.reqs
	p.send(t, stepPayload("Thinking", 1))
	require.Eventually(t, func() bool {
		return len(m.State().ThinkingSteps) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// User navigates to another conversation mid-turn.
	convs.set("conv-2")
	m.NewChat("conv-2")

	go p.send(t, map[string]string{"chunk": "stale"})

	r := <-ch
	require.ErrorIs(t, r.err, ErrTurnAbandoned)

	st := m.State()
	require.Equal(t, "conv-2", st.ConversationID)
	require.Empty(t, st.Messages)
	require.Empty(t, st.Error)
	require.False(t, s.InFlight())
}

func TestAbandonTearsDownSilentStream(t *testing.T) {
	p := newPipeStreamer()
	s, m, convs := newHarness(p, nil)

	ch := sendAsync(s, "hi")
	<-p.reqs

	convs.set("conv-2")
	m.NewChat("conv-2")
	require.True(t, s.Abandon())

	r := <-ch
	require.ErrorIs(t, r.err, ErrTurnAbandoned)
	require.Empty(t, m.State().Error)
}

func TestFallbackPhrasesUntilServerStep(t *testing.T) {
	p := newPipeStreamer()
	s, m, _ := newHarness(p, func(d *Deps) {
		d.FallbackPhrases = [][]string{{"Analyzing", "Reviewing"}}
		d.FallbackInterval = 10 * time.Millisecond
		d.Intn = func(int) int { return 0 }
	})

	ch := sendAsync(s, "hi")
	<-p.reqs

	seen := map[string]bool{}
	require.Eventually(t, func() bool {
		st := m.State()
		if st.PlaceholderStep {
			seen[st.CurrentThinkingStep] = true
		}
		return seen["Analyzing"] && seen["Reviewing"]
	}, 2*time.Second, 2*time.Millisecond)

	p.send(t, stepPayload("Reading your files", 1))
	require.Eventually(t, func() bool {
		return m.State().CurrentThinkingStep == "Reading your files"
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	st := m.State()
	require.Equal(t, "Reading your files", st.CurrentThinkingStep)
	require.False(t, st.PlaceholderStep)

	p.done(t)
	require.NoError(t, (<-ch).err)
}

func TestSurfaceMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrStalled, ErrStalled.Error()},
		{&api.ClientError{Type: api.ErrTypeCanceled, Message: "x"}, "request cancelled"},
		{&api.ClientError{Type: api.ErrTypeStatus, Message: "API Error: 502 Bad Gateway"}, "API Error: 502 Bad Gateway"},
		{&sse.StreamError{Partial: 3, Err: errors.New("connection reset")}, "connection reset"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := surfaceMessage(tt.err); got != tt.want {
			t.Errorf("surfaceMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
