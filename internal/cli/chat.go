// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/chat"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/session"
	chatui "github.com/jeranaias/crewchat/internal/ui/chat"
	"github.com/jeranaias/crewchat/internal/ui/styles"
	"github.com/jeranaias/crewchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// historyLiner wraps liner with a persisted history file.
type historyLiner struct {
	*liner.State
	path string
}

func newHistoryLiner(path string) *historyLiner {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	h := &historyLiner{State: line, path: path}
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Close saves history with owner-only permissions and restores the terminal.
func (h *historyLiner) Close() {
	if h.path != "" {
		if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			h.State.WriteHistory(f)
			f.Close()
		}
	}
	h.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-oriented chat loop. Streamed content is printed as it
// arrives unless a markdown renderer is set, in which case each reply is
// printed once, rendered, when its turn ends.
type REPL struct {
	sess   *session.Session
	in     lineReader
	out    io.Writer
	render func(string) string

	mu       sync.Mutex
	msgID    string
	printed  int
	lastStep string
	unsub    func()
}

// NewREPL creates a REPL over an opened session. render may be nil.
func NewREPL(sess *session.Session, in lineReader, out io.Writer, render func(string) string) *REPL {
	r := &REPL{sess: sess, in: in, out: out, render: render}
	r.unsub = sess.Machine.Subscribe(r.onState)
	return r
}

// Close detaches the REPL from the session.
func (r *REPL) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}

// Run reads lines until EOF, an aborted prompt or /quit.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()
	for {
		line, err := r.in.Prompt(promptStyle.Render(r.sess.Profile.DisplayName) + " > ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		if cmd, ok := chatui.ParseSlash(line); ok {
			if quit := r.command(ctx, cmd); quit {
				return nil
			}
			continue
		}
		r.Send(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Send runs one turn and prints the reply or the surfaced error.
func (r *REPL) Send(ctx context.Context, text string) error {
	r.reset()
	_, err := r.sess.Send(ctx, text)
	r.finish()
	return err
}

// onState prints thinking progress and, in streaming mode, new content.
// It runs on the turn's goroutine.
func (r *REPL) onState(st chat.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st.IsThinking && st.CurrentThinkingStep != "" && st.CurrentThinkingStep != r.lastStep {
		r.lastStep = st.CurrentThinkingStep
		fmt.Fprintln(r.out, stepStyle.Render("  ... "+util.SingleLine(st.CurrentThinkingStep)))
	}

	msg, ok := st.OpenMessage()
	if !ok || r.render != nil {
		return
	}
	if msg.ID != r.msgID {
		r.msgID = msg.ID
		r.printed = 0
		fmt.Fprintln(r.out, r.label(msg))
	}
	r.flush(msg)
}

// flush writes content not yet printed. Content only grows within a turn.
func (r *REPL) flush(msg model.Message) {
	if len(msg.Content) > r.printed {
		io.WriteString(r.out, msg.Content[r.printed:])
		r.printed = len(msg.Content)
	}
}

func (r *REPL) reset() {
	r.mu.Lock()
	r.msgID, r.printed, r.lastStep = "", 0, ""
	r.mu.Unlock()
}

func (r *REPL) finish() {
	st := r.sess.Machine.State()
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(st.Messages); n > 0 && st.Messages[n-1].IsAssistant() {
		last := st.Messages[n-1]
		switch {
		case r.render != nil:
			fmt.Fprintln(r.out, r.label(last))
			fmt.Fprintln(r.out, r.render(last.Content))
		case last.ID == r.msgID:
			r.flush(last)
			fmt.Fprintln(r.out)
		case last.Content != "":
			fmt.Fprintln(r.out, r.label(last))
			fmt.Fprintln(r.out, last.Content)
		}
	}
	if st.Error != "" {
		fmt.Fprintln(r.out, styles.RenderError(st.Error))
	}
}

func (r *REPL) label(msg model.Message) string {
	label := r.sess.Profile.DisplayName
	if msg.CrewMember != "" {
		name := msg.CrewMember
		if c, ok := model.FindCrew(r.sess.Crew.Roster(), name); ok {
			name = c.Label()
		}
		label += " / " + name
	}
	return welcomeStyle.Render(label)
}

func (r *REPL) printWelcome() {
	p := r.sess.Profile
	fmt.Fprintln(r.out, welcomeStyle.Render(strings.TrimSpace(p.WelcomeIcon+" "+p.WelcomeTitle)))
	if st := r.sess.Machine.State(); len(st.Messages) > 0 {
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Continuing conversation %s (%d messages). /new starts over.",
			st.ConversationID, len(st.Messages))))
	} else {
		r.printQuickQuestions()
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands."))
}

func (r *REPL) printQuickQuestions() {
	for i, q := range r.sess.Profile.QuickQuestions {
		fmt.Fprintf(r.out, "  %2d. %s\n", i+1, strings.TrimSpace(q.Icon+" "+q.Text))
	}
	if len(r.sess.Profile.QuickQuestions) > 0 {
		fmt.Fprintln(r.out, DimStyle.Render("Type /q N to ask one."))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /q N             Ask quick question N
  /new             Start a new conversation
  /history         List conversations
  /switch N|ID     Open a conversation from /history
  /show            Reprint the current conversation
  /rename TITLE    Rename the current conversation
  /delete          Delete the current conversation
  /crew [NAME|clear]  Show the crew or pin a member
  /kb on|off       Toggle the knowledge base
  /quit            Exit`

// command runs a slash command and reports whether the REPL should exit.
func (r *REPL) command(ctx context.Context, cmd chatui.SlashCommand) bool {
	s := r.sess
	switch cmd.Name {
	case "quit", "exit":
		return true

	case "help", "h":
		fmt.Fprintln(r.out, replHelp)

	case "q":
		q, ok := chatui.QuickQuestion(s.Profile, cmd.Arg)
		if !ok {
			r.printQuickQuestions()
			break
		}
		fmt.Fprintln(r.out, DimStyle.Render("> "+q))
		r.Send(ctx, q)

	case "new":
		id := s.NewChat()
		fmt.Fprintln(r.out, styles.RenderInfo("New conversation "+id))
		r.printQuickQuestions()

	case "history":
		if err := s.Conversations.LoadConversations(ctx); err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		}
		r.printHistory()

	case "switch":
		id := r.resolveConversation(cmd.Arg)
		if id == "" {
			fmt.Fprintln(r.out, styles.RenderWarning("Usage: /switch N|ID (see /history)"))
			break
		}
		if err := s.SwitchTo(ctx, id); err != nil {
			fmt.Fprintln(r.out, styles.RenderWarning("Could not load history: "+err.Error()))
		}
		r.printTranscript()

	case "show":
		r.printTranscript()

	case "rename":
		if cmd.Arg == "" {
			fmt.Fprintln(r.out, styles.RenderWarning("Usage: /rename TITLE"))
			break
		}
		r.report(s.Rename(ctx, s.Machine.ConversationID(), cmd.Arg), "Renamed")

	case "delete":
		r.report(s.Delete(ctx, s.Machine.ConversationID()), "Deleted; now in "+s.Machine.ConversationID())

	case "crew":
		r.crew(cmd.Arg)

	case "kb":
		on := strings.EqualFold(cmd.Arg, "on")
		if !on && !strings.EqualFold(cmd.Arg, "off") {
			fmt.Fprintln(r.out, styles.RenderWarning("Usage: /kb on|off"))
			break
		}
		r.report(s.SetUseKnowledgeBase(on), "Knowledge base "+strings.ToLower(cmd.Arg))

	default:
		fmt.Fprintln(r.out, styles.RenderWarning("Unknown command /"+cmd.Name+" (try /help)"))
	}
	return false
}

func (r *REPL) report(err error, ok string) {
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		return
	}
	fmt.Fprintln(r.out, styles.RenderSuccess(ok))
}

func (r *REPL) crew(arg string) {
	c := r.sess.Crew
	switch {
	case !c.HasCrew():
		fmt.Fprintln(r.out, styles.RenderInfo("This agent has no crew"))
	case arg == "":
		snap := c.Snapshot()
		for _, m := range snap.Roster {
			marks := ""
			if snap.HasCurrent && m.Name == snap.Current.Name {
				marks += " (current)"
			}
			if m.Name == snap.Override {
				marks += " (pinned)"
			}
			fmt.Fprintf(r.out, "  %-16s %s%s\n", m.Name, m.Label(), DimStyle.Render(marks))
		}
	case strings.EqualFold(arg, "clear"):
		c.ClearOverride()
		fmt.Fprintln(r.out, styles.RenderSuccess("Crew routing back to automatic"))
	default:
		r.report(c.SetOverride(arg), "Next turns prefer "+arg)
	}
}

func (r *REPL) printHistory() {
	convs := r.sess.Conversations.Conversations()
	if len(convs) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No conversations yet"))
		return
	}
	active := r.sess.Machine.ConversationID()
	width := GetTerminalWidth() - 12
	for i, c := range convs {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", marker, i+1,
			util.PadWidth(util.SingleLine(c.DisplayTitle()), max(20, width-20)),
			DimStyle.Render(fmt.Sprintf("%d msgs", c.MessageCount)))
	}
}

// resolveConversation accepts a 1-based /history index or a raw id.
func (r *REPL) resolveConversation(arg string) string {
	if arg == "" {
		return ""
	}
	if n, err := strconv.Atoi(arg); err == nil {
		convs := r.sess.Conversations.Conversations()
		if n >= 1 && n <= len(convs) {
			return convs[n-1].ID
		}
		return ""
	}
	return arg
}

func (r *REPL) printTranscript() {
	st := r.sess.Machine.State()
	if len(st.Messages) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("(empty conversation "+st.ConversationID+")"))
		return
	}
	for _, m := range st.Messages {
		if m.IsUser() {
			fmt.Fprintln(r.out, promptStyle.Render("You"))
			fmt.Fprintln(r.out, m.Content)
		} else {
			fmt.Fprintln(r.out, r.label(m))
			content := m.Content
			if r.render != nil {
				content = r.render(content)
			}
			fmt.Fprintln(r.out, content)
		}
		fmt.Fprintln(r.out)
	}
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// markdownRenderer returns a glamour renderer for terminal output, or nil
// when output is not a terminal or markdown is disabled.
func markdownRenderer(a *app) func(string) string {
	if !IsStdoutTTY() || !a.cfg.UI.Markdown {
		return nil
	}
	wrap := GetTerminalWidth() - 2
	if a.cfg.UI.WordWrap > 0 && a.cfg.UI.WordWrap < wrap {
		wrap = a.cfg.UI.WordWrap
	}
	style := styles.ModeDark
	if a.cfg.UI.Theme == styles.ModeLight {
		style = styles.ModeLight
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.Trim(out, "\n")
	}
}

// cancelOnInterrupt stops the in-flight turn on Ctrl+C. The prompt itself
// handles Ctrl+C in raw mode, so signals only arrive while a turn runs.
func cancelOnInterrupt(sess *session.Session) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sig:
				sess.Sender.Cancel()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func runREPL(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	sess := a.session()
	defer sess.Close()
	sess.Open(ctx)

	historyPath, _ := a.cfg.HistoryPath()
	line := newHistoryLiner(historyPath)
	defer line.Close()

	stop := cancelOnInterrupt(sess)
	defer stop()

	r := NewREPL(sess, line, cmd.OutOrStdout(), markdownRenderer(a))
	defer r.Close()
	return r.Run(ctx)
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the reply",
		Long:  "Ask one question in the current conversation. With no arguments the question is read from stdin.",
		Example: `  crewchat ask "How can I sleep better?"
  echo "What were sales last week?" | crewchat --agent aspect ask --new`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if question == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = string(data)
			}
			if strings.TrimSpace(question) == "" {
				return usageErrorf("ask: no question given")
			}

			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			configureColors()

			sess := a.session()
			defer sess.Close()
			sess.Open(cmd.Context())
			if fresh {
				sess.NewChat()
			}

			stop := cancelOnInterrupt(sess)
			defer stop()

			r := NewREPL(sess, nil, cmd.OutOrStdout(), markdownRenderer(a))
			defer r.Close()
			if err := r.Send(cmd.Context(), question); err != nil {
				return NewCommandError("ask", "", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "ask in a new conversation")
	return cmd
}
