// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/crewchat/internal/chat"
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/crew"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/session"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	sidebarWidth = 30

	// Fixed rows around the transcript viewport
	headerHeight   = 2
	activityHeight = 1
	inputHeight    = 3
	statusHeight   = 1
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configure New.
type Options struct {
	Theme *styles.Theme
	UI    config.UIConfig
	Keys  *KeyMap

	// SkipOpen leaves the session unopened by Init. Callers that already
	// ran Session.Open set it.
	SkipOpen bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen for one session.
type Model struct {
	sess  *session.Session
	theme *styles.Theme
	keys  KeyMap
	ui    config.UIConfig

	// Snapshots re-read on every change signal
	state chat.State
	convs []model.Conversation
	crew  crew.Snapshot

	changes  chan struct{}
	skipOpen bool
	opened   bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	md       *markdown

	width       int
	height      int
	showSidebar bool
	sidebarFoc  bool
	cursor      int

	// pendingDelete holds the id awaiting a second delete press.
	pendingDelete string
	notice        string
	followTail    bool
}

// New creates the chat model and subscribes it to the session.
func New(s *session.Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(opts.UI.Theme)
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	in := textinput.New()
	in.Placeholder = s.Profile.InputPlaceholder
	in.Prompt = "> "
	in.CharLimit = 4000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = styles.ThinkingSpinner
	sp.Style = theme.ThinkingSpinner

	m := Model{
		sess:        s,
		theme:       theme,
		keys:        keys,
		ui:          opts.UI,
		changes:     make(chan struct{}, 1),
		skipOpen:    opts.SkipOpen,
		opened:      opts.SkipOpen,
		viewport:    viewport.New(0, 0),
		input:       in,
		spinner:     sp,
		md:          newMarkdown(theme.GlamourStyle()),
		showSidebar: s.Profile.Features.HasChatHistory,
		followTail:  true,
	}

	signal := m.signal
	s.Machine.Subscribe(func(chat.State) { signal() })
	s.Conversations.Subscribe(func([]model.Conversation) { signal() })
	s.Crew.Subscribe(func(crew.Snapshot) { signal() })

	m.sync()
	return m
}

// signal records a pending change without blocking the notifier.
func (m Model) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Init starts the spinner, the change listener and, unless skipped, the
// session's startup loads.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, waitForChange(m.changes)}
	if !m.skipOpen {
		cmds = append(cmds, openCmd(m.sess))
	}
	return tea.Batch(cmds...)
}

// sync re-reads every core snapshot.
func (m *Model) sync() {
	m.state = m.sess.Machine.State()
	m.convs = m.sess.Conversations.Conversations()
	m.crew = m.sess.Crew.Snapshot()
	if m.cursor >= len(m.convs) {
		m.cursor = max(0, len(m.convs)-1)
	}
}

// State returns the last chat state the model rendered from.
func (m Model) State() chat.State {
	return m.state
}

// Notice returns the transient status text.
func (m Model) Notice() string {
	return m.notice
}
