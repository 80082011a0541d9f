// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/session"
	"github.com/jeranaias/crewchat/internal/sse/ssetest"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type backend struct {
	mu      sync.Mutex
	deleted []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/create", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"userId":"user-1"}`)
	})
	mux.HandleFunc("GET /api/conversation/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/user/{uid}/conversations", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"conversations":[
			{"externalId":"conv-1","title":"Sleep","messageCount":2,"updatedAt":"2025-01-03T00:00:00Z"},
			{"externalId":"conv-2","title":"Diet","messageCount":4,"updatedAt":"2025-01-04T00:00:00Z"}
		]}`)
	})
	mux.HandleFunc("DELETE /api/conversation/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.PathValue("id"))
		b.mu.Unlock()
		io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("GET /api/agents/{agent}/crew", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"crew":[
			{"name":"general","displayName":"Freeda","isDefault":true},
			{"name":"nutrition","displayName":"Nutrition Coach"}
		]}`)
	})
	mux.HandleFunc("POST /api/finance-assistant/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		ssetest.WriteData(w, map[string]string{"chunk": "Hello"})
		ssetest.WriteData(w, map[string]string{"chunk": " there"})
		ssetest.WriteDone(w)
	})
	return mux
}

func newSession(t *testing.T, b *backend) *session.Session {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Stream.FallbackInterval = config.D(0)
	cfg.Stream.RefreshMinInterval = config.D(0)

	var mu sync.Mutex
	n := 0
	sc := session.NewContext(session.Options{
		Config: cfg,
		Store:  localstore.NewMemory(),
		API: api.NewClientWithConfig(&api.ClientConfig{
			BaseURL:    srv.URL,
			Timeout:    5 * time.Second,
			RetryDelay: time.Millisecond,
		}),
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("new-%d", n)
		},
	})
	s := session.New(sc)
	t.Cleanup(s.Close)
	return s
}

func newModel(t *testing.T, s *session.Session) Model {
	t.Helper()
	ui := config.Default().UI
	ui.Markdown = false
	m := New(s, Options{Theme: styles.NewTheme(styles.ModeDark), UI: ui, SkipOpen: true})
	return update(t, m, tea.WindowSizeMsg{Width: 200, Height: 50})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyD     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")}
)

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestParseSlash(t *testing.T) {
	tests := []struct {
		input string
		want  SlashCommand
		ok    bool
	}{
		{"/new", SlashCommand{Name: "new"}, true},
		{"  /Q 3 ", SlashCommand{Name: "q", Arg: "3"}, true},
		{"/rename My  plan", SlashCommand{Name: "rename", Arg: "My  plan"}, true},
		{"hello", SlashCommand{}, false},
		{"/", SlashCommand{}, false},
		{"//not a command", SlashCommand{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseSlash(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSlash(%q) = %+v, %v, want %+v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestQuickQuestionRange(t *testing.T) {
	s := newSession(t, &backend{})
	qs := s.Profile.QuickQuestions
	require.NotEmpty(t, qs)

	got, ok := QuickQuestion(s.Profile, "1")
	require.True(t, ok)
	require.Equal(t, qs[0].Question, got)

	for _, arg := range []string{"0", fmt.Sprint(len(qs) + 1), "x", ""} {
		_, ok := QuickQuestion(s.Profile, arg)
		require.False(t, ok, "arg %q", arg)
	}
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestWelcomeScreen(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)

	view := m.View()
	require.Contains(t, view, s.Profile.WelcomeTitle)
	require.Contains(t, view, s.Profile.QuickQuestions[0].Text)
	require.Contains(t, view, "/q N")
}

func TestViewBeforeResize(t *testing.T) {
	s := newSession(t, &backend{})
	m := New(s, Options{Theme: styles.NewTheme(styles.ModeDark), SkipOpen: true})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want %q", got, "Loading...")
	}
}

func TestAssistantMessageShowsCrewLabel(t *testing.T) {
	s := newSession(t, &backend{})
	s.Open(context.Background())
	m := newModel(t, s)

	out := m.renderMessage(model.Message{
		ID:         "a1",
		Role:       model.RoleAssistant,
		Content:    "Eat more fiber.",
		CrewMember: "nutrition",
	}, 100)
	require.Contains(t, out, "Nutrition Coach")
	require.Contains(t, out, "Eat more fiber.")
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestSubmitRunsTurn(t *testing.T) {
	s := newSession(t, &backend{})
	s.Open(context.Background())
	m := newModel(t, s)

	m.input.SetValue("hi")
	m, cmd := press(t, m, keyEnter)
	require.NotNil(t, cmd)
	require.Empty(t, m.input.Value())

	done, ok := cmd().(TurnDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	require.True(t, done.Result.SawContent)

	m = update(t, m, done)
	st := m.State()
	require.Len(t, st.Messages, 2)
	require.Equal(t, "Hello there", st.Messages[1].Content)
	require.Contains(t, m.View(), "Hello there")
}

func TestSubmitWhileLoadingIsHeld(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)
	m.state.IsLoading = true

	m.input.SetValue("second")
	m, cmd := press(t, m, keyEnter)
	require.Nil(t, cmd)
	require.Equal(t, "second", m.input.Value())
	require.Contains(t, m.Notice(), "Wait")
}

func TestQuickQuestionOutOfRange(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)

	m.input.SetValue("/q 99")
	m, cmd := press(t, m, keyEnter)
	require.Nil(t, cmd)
	require.Contains(t, m.Notice(), "Pick a question")
}

func TestEscClearsSurfacedError(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)

	s.Machine.Fail("boom")
	m = update(t, m, changedMsg{})
	require.Equal(t, "boom", m.State().Error)
	require.Contains(t, m.View(), "boom")

	press(t, m, keyEsc)
	require.Empty(t, s.Machine.State().Error)
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func TestSidebarDeleteNeedsConfirmation(t *testing.T) {
	b := &backend{}
	s := newSession(t, b)
	s.Open(context.Background())
	m := newModel(t, s)
	require.Len(t, m.convs, 2)

	m, _ = press(t, m, keyTab)
	require.True(t, m.sidebarFoc)

	m, cmd := press(t, m, keyD)
	require.Nil(t, cmd)
	require.Contains(t, m.Notice(), "Press d again")

	m, cmd = press(t, m, keyD)
	require.NotNil(t, cmd)
	msg, ok := cmd().(DeletedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)

	m = update(t, m, msg)
	require.Equal(t, "Conversation deleted", m.Notice())
	b.mu.Lock()
	require.Equal(t, []string{msg.ID}, b.deleted)
	b.mu.Unlock()
}

func TestSidebarTruncatesWideTitles(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)
	m.convs = []model.Conversation{{ID: "c", Title: strings.Repeat("睡眠", 40)}}

	out := m.renderSidebar(10)
	require.Contains(t, out, "...")
}

// =============================================================================
// SIGNAL AND CONFIG TESTS
// =============================================================================

func TestChangeSignalsCoalesce(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)
	for len(m.changes) > 0 {
		<-m.changes
	}

	s.Machine.NewChat("x")
	s.Machine.NewChat("y")
	require.Len(t, m.changes, 1)

	_, ok := waitForChange(m.changes)().(changedMsg)
	require.True(t, ok)
}

func TestConfigReload(t *testing.T) {
	s := newSession(t, &backend{})
	m := newModel(t, s)
	require.True(t, m.ui.ShowThinking)

	cfg := config.Default()
	cfg.UI.ShowThinking = false
	m = update(t, m, ConfigReloadedMsg{Config: cfg})
	require.False(t, m.ui.ShowThinking)
	require.Equal(t, "Config reloaded", m.Notice())

	m = update(t, m, ConfigReloadedMsg{Err: fmt.Errorf("bad theme")})
	require.Contains(t, m.Notice(), "rejected")
	require.False(t, m.ui.ShowThinking)
}
