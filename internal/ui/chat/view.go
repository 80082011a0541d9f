// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/ui/styles"
	"github.com/jeranaias/crewchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the screen. Layout top to bottom: header, divider,
// [sidebar | transcript], activity line, input box, status bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(m.viewport.Height), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.theme.Divider.Render(strings.Repeat("─", m.width)),
		body,
		m.renderActivity(),
		m.theme.InputContainer.Width(max(10, m.width-2)).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	p := m.sess.Profile
	left := m.theme.HeaderTitle.Render(p.HeaderTitle)
	if p.HeaderSubtitle != "" {
		left += " " + m.theme.HeaderSubtitle.Render(p.HeaderSubtitle)
	}

	var right []string
	if m.crew.HasCurrent {
		c := m.crew.Current
		right = append(right, m.theme.CrewStyle(c.Name).Render(c.Label()))
	}
	if m.crew.Override != "" {
		right = append(right, m.theme.OverrideBadge.Render("pinned: "+m.crew.Override))
	}
	r := strings.Join(right, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(r) - 2
	if gap < 1 {
		return m.theme.Header.Width(m.width).Render(left)
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + r)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the message list, or the welcome screen for an
// empty conversation.
func (m Model) renderTranscript(width int) string {
	st := m.state
	if len(st.Messages) == 0 && !st.IsLoading {
		return m.renderWelcome(width)
	}

	var b strings.Builder
	for i, msg := range st.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width))
	}

	// Server steps before the first chunk have no message to live in yet.
	if st.IsThinking && m.ui.ShowThinking && len(st.ThinkingSteps) > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.renderSteps(st.ThinkingSteps, width))
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message, width int) string {
	wrap := m.wrapWidth(width)
	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = " " + m.theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	}

	if msg.IsUser() {
		label := m.theme.UserLabel.Render(msg.Role.DisplayName()) + stamp
		return label + "\n" + m.theme.UserBubble.Width(wrap).Render(msg.Content)
	}

	label := m.theme.AssistantLabel.Render(m.sess.Profile.DisplayName)
	if msg.CrewMember != "" {
		label += " " + m.theme.CrewStyle(msg.CrewMember).Render(m.crewLabel(msg.CrewMember))
	}
	label += stamp

	var parts []string
	parts = append(parts, label)
	if m.ui.ShowThinking && len(msg.ThinkingSteps) > 0 {
		if msg.IsStreaming {
			parts = append(parts, m.renderSteps(msg.ThinkingSteps, width))
		} else {
			parts = append(parts, m.theme.ThinkingStep.Render(stepCount(len(msg.ThinkingSteps))))
		}
	}

	content := msg.Content
	if m.ui.Markdown && content != "" {
		content = m.md.render(msg.ID, content, wrap, !msg.IsStreaming)
	}
	if msg.IsStreaming {
		content += m.theme.Cursor.Render("▌")
	}
	parts = append(parts, m.theme.AssistantBody.Width(wrap).Render(content))
	return strings.Join(parts, "\n")
}

func (m Model) renderSteps(steps []model.ThinkingStep, width int) string {
	lines := make([]string, 0, len(steps))
	for _, s := range model.SortSteps(steps) {
		text := util.TruncateWidth(util.SingleLine(s.Description), max(10, width-6))
		lines = append(lines, m.theme.ThinkingStep.Render("· "+text))
	}
	return strings.Join(lines, "\n")
}

func stepCount(n int) string {
	if n == 1 {
		return "· 1 thinking step"
	}
	return fmt.Sprintf("· %d thinking steps", n)
}

func (m Model) crewLabel(name string) string {
	if c, ok := model.FindCrew(m.crew.Roster, name); ok {
		return c.Label()
	}
	return name
}

func (m Model) wrapWidth(width int) int {
	w := width - 4
	if m.ui.WordWrap > 0 && m.ui.WordWrap < w {
		w = m.ui.WordWrap
	}
	return max(10, w)
}

// =============================================================================
// WELCOME
// =============================================================================

func (m Model) renderWelcome(width int) string {
	p := m.sess.Profile
	title := strings.TrimSpace(p.WelcomeIcon + " " + p.WelcomeTitle)

	var b strings.Builder
	b.WriteString(m.theme.WelcomeTitle.Render(title))
	b.WriteString("\n")
	if p.WelcomeMessage != "" {
		b.WriteString(m.theme.WelcomeMessage.Width(m.wrapWidth(width)).Render(p.WelcomeMessage))
		b.WriteString("\n")
	}
	for i, q := range p.QuickQuestions {
		n := m.theme.QuickQuestionNo.Render(fmt.Sprintf("%2d.", i+1))
		text := util.TruncateWidth(strings.TrimSpace(q.Icon+" "+q.Text), max(10, width-6))
		b.WriteString(n + " " + m.theme.QuickQuestion.Render(text) + "\n")
	}
	if len(p.QuickQuestions) > 0 {
		b.WriteString("\n" + m.theme.Timestamp.Render("Type /q N to ask a quick question"))
	}
	return b.String()
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(height int) string {
	inner := sidebarWidth - 2
	var lines []string
	lines = append(lines, m.theme.SidebarTitle.Render("History"))

	switch {
	case len(m.convs) == 0 && m.sess.Conversations.Loading():
		lines = append(lines, m.theme.SidebarMeta.Render("Loading..."))
	case len(m.convs) == 0:
		if e := m.sess.Conversations.LastError(); e != "" {
			lines = append(lines, m.theme.SidebarMeta.Render(util.TruncateWidth(e, inner)))
		} else {
			lines = append(lines, m.theme.SidebarMeta.Render("No conversations yet"))
		}
	}

	for i, c := range m.convs {
		marker := "  "
		if c.ID == m.state.ConversationID {
			marker = "● "
		}
		title := util.PadWidth(marker+util.SingleLine(c.DisplayTitle()), inner)

		style := m.theme.SidebarItem
		switch {
		case m.sidebarFoc && i == m.cursor:
			style = m.theme.SidebarSelected
		case c.ID == m.state.ConversationID:
			style = m.theme.SidebarActive
		}
		lines = append(lines, style.Render(title))
		if c.ID == m.pendingDelete {
			lines = append(lines, m.theme.SidebarMeta.Render("  press d to confirm"))
		}
	}

	return m.theme.Sidebar.Width(sidebarWidth).Height(height).MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) selected() (model.Conversation, bool) {
	if m.cursor < 0 || m.cursor >= len(m.convs) {
		return model.Conversation{}, false
	}
	return m.convs[m.cursor], true
}

// =============================================================================
// ACTIVITY AND STATUS
// =============================================================================

// renderActivity shows the thinking indicator, the surfaced error or the
// transient notice, in that order of precedence.
func (m Model) renderActivity() string {
	st := m.state
	room := max(10, m.width-4)
	switch {
	case st.IsThinking:
		step := st.CurrentThinkingStep
		if step == "" {
			step = "Thinking..."
		}
		return m.spinner.View() + " " + m.theme.Thinking.Render(util.TruncateWidth(util.SingleLine(step), room))
	case st.IsLoading:
		return m.spinner.View() + " " + m.theme.Thinking.Render("Responding... (esc to stop)")
	case st.HasError():
		return styles.RenderError(util.TruncateWidth(util.SingleLine(st.Error), room))
	case m.notice != "":
		return m.theme.Notice.Render(util.TruncateWidth(m.notice, room))
	}
	return ""
}

func (m Model) renderStatusBar() string {
	var segs []string
	segs = append(segs, m.theme.StatusKey.Render(m.sess.Profile.DisplayName))
	if m.sess.Profile.Features.HasKnowledgeBase {
		kb := "KB off"
		if m.sess.UseKnowledgeBase() {
			kb = "KB on"
		}
		segs = append(segs, m.theme.StatusValue.Render(kb))
	}
	if id := m.state.ConversationID; id != "" {
		segs = append(segs, m.theme.StatusValue.Render(util.TruncateWidth(id, 11)))
	}
	left := strings.Join(segs, " · ")

	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	right := util.TruncateWidth(strings.Join(help, " · "), max(0, m.width-lipgloss.Width(left)-4))

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + m.theme.StatusValue.Render(right))
}
