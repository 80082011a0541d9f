// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/session"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForChange blocks until a core component signals.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func openCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		s.Open(context.Background())
		return OpenedMsg{}
	}
}

// sendCmd runs one turn. Progress arrives through the machine subscription;
// the returned message only reports the outcome.
func sendCmd(s *session.Session, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Send(context.Background(), text)
		return TurnDoneMsg{Result: res, Err: err}
	}
}

func switchCmd(s *session.Session, id string) tea.Cmd {
	return func() tea.Msg {
		return SwitchedMsg{ID: id, Err: s.SwitchTo(context.Background(), id)}
	}
}

func deleteCmd(s *session.Session, id string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{ID: id, Err: s.Delete(context.Background(), id)}
	}
}

func renameCmd(s *session.Session, id, title string) tea.Cmd {
	return func() tea.Msg {
		return RenamedMsg{ID: id, Err: s.Rename(context.Background(), id, title)}
	}
}

func notice(text string) tea.Cmd {
	return func() tea.Msg { return noticeMsg(text) }
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// SlashCommand is an input line starting with "/".
type SlashCommand struct {
	Name string
	Arg  string
}

// ParseSlash splits "/name arg..." input. Lines not starting with a single
// slash are chat text.
func ParseSlash(input string) (SlashCommand, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") || len(input) < 2 {
		return SlashCommand{}, false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	return SlashCommand{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// QuickQuestion resolves the 1-based "/q N" argument against a profile's
// quick questions.
func QuickQuestion(p config.AgentProfile, arg string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	qs := p.QuickQuestions
	if err != nil || n < 1 || n > len(qs) {
		return "", false
	}
	return qs[n-1].Question, true
}

const slashHelp = "/new  /q N  /crew [name|clear]  /kb on|off  /rename TITLE  /delete  /help"
