// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/export"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/session"
	"github.com/jeranaias/crewchat/internal/ui/styles"
	"github.com/jeranaias/crewchat/internal/util"
)

// errNoUser is returned when no user id is stored and none can be created.
var errNoUser = errors.New("no user id: the server could not provision one")

// withSession opens the app, runs fn with a session and cleans up.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(a *app, s *session.Session) error) error {
	a, err := opts.open(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	configureColors()

	sess := a.session()
	defer sess.Close()
	return fn(a, sess)
}

// conversationArg returns args[0], or the stored current conversation.
func conversationArg(s *session.Session, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.Conversations.ConversationID()
}

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				if s.EnsureUser(cmd.Context()) == "" {
					return NewCommandError("history", "", errNoUser)
				}
				if err := s.Conversations.LoadConversations(cmd.Context()); err != nil {
					return NewCommandError("history", "list conversations", err)
				}
				return printHistory(cmd.OutOrStdout(), s, a.json)
			})
		},
	}
}

func printHistory(w io.Writer, s *session.Session, jsonMode bool) error {
	convs := s.Conversations.Conversations()
	active := s.Conversations.ConversationID()

	if jsonMode {
		rows := make([]ConversationData, 0, len(convs))
		for _, c := range convs {
			rows = append(rows, ConversationData{
				ID:           c.ID,
				Title:        c.Title,
				MessageCount: c.MessageCount,
				UpdatedAt:    c.UpdatedAt,
				Active:       c.ID == active,
			})
		}
		return NewJSONResponse("history", rows).Fprint(w)
	}

	if len(convs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet"))
		return nil
	}

	fmt.Fprintln(w, TitleStyle.Render(s.Profile.DisplayName+" conversations"))
	fmt.Fprintln(w, RenderSeparator(GetTerminalWidth()))
	titleWidth := max(20, GetTerminalWidth()-60)
	for _, c := range convs {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		updated := ""
		if !c.UpdatedAt.IsZero() {
			updated = c.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %s  %s  %s  %s\n", marker,
			padRight(c.ID, 36),
			util.PadWidth(util.TruncateWidth(util.SingleLine(c.DisplayTitle()), titleWidth), titleWidth),
			DimStyle.Render(fmt.Sprintf("%4d msgs", c.MessageCount)),
			DimStyle.Render(updated))
	}
	return nil
}

// =============================================================================
// SHOW AND EXPORT
// =============================================================================

// loadTranscript fetches a conversation's messages and, when a user is
// known, its title.
func loadTranscript(ctx context.Context, s *session.Session, id string) (*export.Transcript, error) {
	msgs, err := s.API.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	t := &export.Transcript{
		ID:        id,
		Agent:     s.Profile.DisplayName,
		AgentName: s.AgentName(),
		Messages:  msgs,
		Crew:      s.API.GetCrew(ctx, s.AgentName()),
	}
	if uid := s.UserID(); uid != "" {
		if convs, err := s.API.ListConversations(ctx, uid, s.AgentName()); err == nil {
			if i := model.FindConversation(convs, id); i >= 0 {
				t.Title = convs[i].Title
				t.CreatedAt = convs[i].CreatedAt
				t.UpdatedAt = convs[i].UpdatedAt
			}
		}
	}
	return t, nil
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [conversation-id]",
		Short: "Print a conversation (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				id := conversationArg(s, args)
				t, err := loadTranscript(cmd.Context(), s, id)
				if err != nil {
					if api.IsNotFound(err) {
						return NewCommandError("show", "", fmt.Errorf("conversation %s has no messages: %w", id, err))
					}
					return NewCommandError("show", "load conversation", err)
				}
				if a.json {
					return NewJSONResponse("show", t).Fprint(cmd.OutOrStdout())
				}
				printTranscript(cmd.OutOrStdout(), t, markdownRenderer(a))
				return nil
			})
		},
	}
}

func printTranscript(w io.Writer, t *export.Transcript, render func(string) string) {
	fmt.Fprintln(w, TitleStyle.Render(t.DisplayTitle()))
	fmt.Fprintln(w, DimStyle.Render(t.ID))
	fmt.Fprintln(w)
	for _, m := range t.Messages {
		if m.IsUser() {
			fmt.Fprintln(w, promptStyle.Render(t.Speaker(m)))
			fmt.Fprintln(w, m.Content)
		} else {
			fmt.Fprintln(w, welcomeStyle.Render(t.Speaker(m)))
			content := m.Content
			if render != nil {
				content = render(content)
			}
			fmt.Fprintln(w, content)
		}
		fmt.Fprintln(w)
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format   string
		output   string
		theme    string
		noSteps  bool
		noStamps bool
	)
	cmd := &cobra.Command{
		Use:   "export [conversation-id]",
		Short: "Write a conversation to a Markdown, JSON or HTML file",
		Example: `  crewchat export
  crewchat export 4f1c... --format html -o sleep.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" && output != "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}
			eopts := export.DefaultOptions()
			eopts.Theme = theme
			eopts.IncludeThinking = !noSteps
			eopts.IncludeTimestamps = !noStamps
			exp, err := export.ForFormat(format, eopts)
			if err != nil {
				return usageErrorf("export: %v", err)
			}

			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				s.EnsureUser(cmd.Context())
				id := conversationArg(s, args)
				t, err := loadTranscript(cmd.Context(), s, id)
				if err != nil {
					return NewCommandError("export", "load conversation", err)
				}
				path, err := export.ExportToFile(t, exp, output)
				if err != nil {
					return NewCommandError("export", "", err)
				}
				if a.json {
					return NewJSONResponse("export", map[string]string{"path": path, "conversation": id}).Fprint(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Exported to "+path))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "", "markdown, json or html (default from --output, else markdown)")
	f.StringVarP(&output, "output", "o", "", "output file (default: generated name in the current directory)")
	f.StringVar(&theme, "theme", "dark", "HTML theme: dark or light")
	f.BoolVar(&noSteps, "no-thinking", false, "omit thinking steps")
	f.BoolVar(&noStamps, "no-timestamps", false, "omit message times")
	return cmd
}

// =============================================================================
// RENAME, DELETE, NEW
// =============================================================================

func newRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation-id> <title...>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return usageErrorf("rename: title is empty")
			}
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				if err := s.Rename(cmd.Context(), args[0], title); err != nil {
					return NewCommandError("rename", "update title", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Renamed %s to %q", args[0], title)))
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <conversation-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				wasActive := args[0] == s.Conversations.ConversationID()
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return NewCommandError("delete", "delete conversation", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, styles.RenderSuccess("Deleted "+args[0]))
				if wasActive {
					fmt.Fprintln(out, DimStyle.Render("Current conversation is now "+s.Conversations.ConversationID()))
				}
				return nil
			})
		},
	}
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				id := s.NewChat()
				if a.json {
					return NewJSONResponse("new", map[string]string{"conversation": id}).Fprint(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}
