// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/pipeline"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		m.sync()
		m.refreshViewport()
		return m, waitForChange(m.changes)

	case OpenedMsg:
		m.opened = true
		m.sync()
		m.refreshViewport()
		return m, nil

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case SwitchedMsg:
		m.sidebarFoc = false
		m.followTail = true
		m.sync()
		m.refreshViewport()
		if msg.Err != nil {
			m.notice = "Could not load that conversation's history"
		} else {
			m.notice = ""
		}
		return m, nil

	case DeletedMsg:
		m.pendingDelete = ""
		m.sync()
		m.refreshViewport()
		if msg.Err != nil {
			m.notice = "Delete failed: " + msg.Err.Error()
		} else {
			m.notice = "Conversation deleted"
		}
		return m, nil

	case RenamedMsg:
		if msg.Err != nil {
			m.notice = "Rename failed: " + msg.Err.Error()
		} else {
			m.notice = "Conversation renamed"
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Err != nil {
			m.notice = "Config reload rejected: " + msg.Err.Error()
			return m, nil
		}
		m.applyUI(msg.Config.UI)
		m.notice = "Config reloaded"
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout()
	m.refreshViewport()
	return m, nil
}

func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.sync()
	m.refreshViewport()
	// Turn failures are already surfaced through State.Error.
	if errors.Is(msg.Err, pipeline.ErrTurnInFlight) {
		m.notice = "Wait for the current reply to finish"
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		return m.handleCancel()
	}

	if m.sidebarFoc {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewChat):
		m.sess.NewChat()
		m.followTail = true
		m.notice = "New conversation"
		return m, nil

	case key.Matches(msg, m.keys.FocusSidebar):
		if m.showSidebar && len(m.convs) > 0 {
			m.sidebarFoc = true
			m.cursor = m.activeIndex()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		if m.sess.Profile.Features.HasChatHistory {
			m.showSidebar = !m.showSidebar
			m.sidebarFoc = false
			m.layout()
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleKB):
		return m, m.setKnowledgeBase(!m.sess.UseKnowledgeBase())

	case key.Matches(msg, m.keys.ToggleThinking):
		m.ui.ShowThinking = !m.ui.ShowThinking
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.followTail = m.viewport.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleCancel() (tea.Model, tea.Cmd) {
	switch {
	case m.sidebarFoc:
		m.sidebarFoc = false
		m.pendingDelete = ""
	case m.state.IsLoading:
		m.sess.Sender.Cancel()
	case m.state.HasError():
		m.sess.Machine.ClearError()
	default:
		m.notice = ""
	}
	return m, nil
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.pendingDelete = ""
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.convs)-1 {
			m.cursor++
		}
		m.pendingDelete = ""
	case key.Matches(msg, m.keys.FocusSidebar):
		m.sidebarFoc = false
		m.pendingDelete = ""
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.selected(); ok {
			m.notice = "Loading..."
			return m, switchCmd(m.sess, c.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.pendingDelete != c.ID {
			m.pendingDelete = c.ID
			m.notice = "Press d again to delete " + c.DisplayTitle()
			return m, nil
		}
		return m, deleteCmd(m.sess, c.ID)
	}
	return m, nil
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if cmd, ok := ParseSlash(text); ok {
		m.input.Reset()
		return m.handleSlash(cmd)
	}
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.state.IsLoading {
		m.notice = "Wait for the current reply to finish"
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.followTail = true
	return m, sendCmd(m.sess, text)
}

func (m Model) handleSlash(cmd SlashCommand) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case "new":
		m.sess.NewChat()
		m.followTail = true
		m.notice = "New conversation"

	case "q":
		q, ok := QuickQuestion(m.sess.Profile, cmd.Arg)
		switch {
		case !ok:
			m.notice = fmt.Sprintf("Pick a question between 1 and %d", len(m.sess.Profile.QuickQuestions))
		case m.state.IsLoading:
			m.notice = "Wait for the current reply to finish"
		default:
			m.followTail = true
			return m, sendCmd(m.sess, q)
		}

	case "crew":
		return m, m.handleCrew(cmd.Arg)

	case "kb":
		switch strings.ToLower(cmd.Arg) {
		case "on":
			return m, m.setKnowledgeBase(true)
		case "off":
			return m, m.setKnowledgeBase(false)
		default:
			m.notice = "Usage: /kb on|off"
		}

	case "rename":
		if cmd.Arg == "" {
			m.notice = "Usage: /rename TITLE"
			return m, nil
		}
		return m, renameCmd(m.sess, m.state.ConversationID, cmd.Arg)

	case "delete":
		return m, deleteCmd(m.sess, m.state.ConversationID)

	case "help":
		m.notice = slashHelp

	default:
		m.notice = "Unknown command /" + cmd.Name + " (try /help)"
	}
	return m, nil
}

func (m Model) handleCrew(arg string) tea.Cmd {
	switch {
	case !m.crew.HasCrew:
		return notice("This agent has no crew")
	case arg == "":
		names := make([]string, len(m.crew.Roster))
		for i, c := range m.crew.Roster {
			names[i] = c.Name
		}
		return notice("Crew: " + strings.Join(names, ", "))
	case strings.EqualFold(arg, "clear"):
		m.sess.Crew.ClearOverride()
		return notice("Crew routing back to automatic")
	}
	if err := m.sess.Crew.SetOverride(arg); err != nil {
		return notice(err.Error())
	}
	return notice("Next turns prefer " + arg)
}

func (m Model) setKnowledgeBase(on bool) tea.Cmd {
	if err := m.sess.SetUseKnowledgeBase(on); err != nil {
		return notice(err.Error())
	}
	if on {
		return notice("Knowledge base on")
	}
	return notice("Knowledge base off")
}

// =============================================================================
// HELPERS
// =============================================================================

// applyUI adopts reloaded display settings.
func (m *Model) applyUI(ui config.UIConfig) {
	if ui.Theme != m.ui.Theme {
		m.theme = styles.NewTheme(ui.Theme)
		m.spinner.Style = m.theme.ThinkingSpinner
		m.md.setStyle(m.theme.GlamourStyle())
	}
	m.ui = ui
	m.refreshViewport()
}

func (m *Model) layout() {
	w := m.mainWidth()
	h := m.height - headerHeight - activityHeight - inputHeight - statusHeight
	m.viewport.Width = w
	m.viewport.Height = max(1, h)
	m.input.Width = max(10, w-6)
}

func (m *Model) refreshViewport() {
	if m.width == 0 {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.mainWidth()))
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= sidebarWidth*2
}

func (m Model) mainWidth() int {
	if m.sidebarVisible() {
		return m.width - sidebarWidth - 1
	}
	return m.width
}

func (m Model) activeIndex() int {
	for i, c := range m.convs {
		if c.ID == m.state.ConversationID {
			return i
		}
	}
	return 0
}
