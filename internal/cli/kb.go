// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/session"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// KNOWLEDGE BASE COMMANDS
// =============================================================================

func newKBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge"},
		Short:   "List and manage knowledge bases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				kbs, err := s.API.ListKnowledgeBases(cmd.Context(), s.AgentName())
				if err != nil {
					return NewCommandError("kb", "list knowledge bases", err)
				}
				out := cmd.OutOrStdout()
				if a.json {
					return NewJSONResponse("kb", kbs).Fprint(out)
				}
				state := "off"
				if s.UseKnowledgeBase() {
					state = "on"
				}
				fmt.Fprintln(out, RenderLabel("Search in chat", state))
				if len(kbs) == 0 {
					fmt.Fprintln(out, DimStyle.Render("No knowledge bases"))
					return nil
				}
				for _, kb := range kbs {
					fmt.Fprintf(out, "%6d  %s  %s\n", kb.ID, padRight(kb.Name, 24),
						DimStyle.Render(fmt.Sprintf("%d files, %s", kb.FileCount, formatBytes(kb.TotalSize))))
					if kb.Description != "" {
						fmt.Fprintf(out, "        %s\n", DimStyle.Render(kb.Description))
					}
				}
				return nil
			})
		},
	}
	cmd.AddCommand(
		newKBCreateCmd(opts),
		newKBFilesCmd(opts),
		newKBUploadCmd(opts),
		newKBDeleteCmd(opts),
		newKBUseCmd(opts),
	)
	return cmd
}

// withKB is withSession for profiles that have a knowledge base.
func withKB(cmd *cobra.Command, opts *rootOptions, fn func(a *app, s *session.Session) error) error {
	return withSession(cmd, opts, func(a *app, s *session.Session) error {
		if !s.Profile.Features.HasKnowledgeBase {
			return NewCommandError(cmd.CommandPath(), "", errors.New(s.Profile.DisplayName+" has no knowledge base"))
		}
		return fn(a, s)
	})
}

func parseKBID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid knowledge base id %q", arg)
	}
	return id, nil
}

func newKBCreateCmd(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				kb, err := s.API.CreateKnowledgeBase(cmd.Context(), args[0], description, s.AgentName())
				if err != nil {
					return NewCommandError("kb create", "create knowledge base", err)
				}
				if a.json {
					return NewJSONResponse("kb create", kb).Fprint(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Created %s (id %d)", kb.Name, kb.ID)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "knowledge base description")
	return cmd
}

func newKBFilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "files <kb-id>",
		Short: "List the files in a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKBID(args[0])
			if err != nil {
				return err
			}
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				files, err := s.API.ListKBFiles(cmd.Context(), id)
				if err != nil {
					return NewCommandError("kb files", "list files", err)
				}
				out := cmd.OutOrStdout()
				if a.json {
					return NewJSONResponse("kb files", files).Fprint(out)
				}
				if len(files) == 0 {
					fmt.Fprintln(out, DimStyle.Render("No files"))
					return nil
				}
				for _, f := range files {
					tags := ""
					if len(f.Tags) > 0 {
						tags = " [" + strings.Join(f.Tags, ", ") + "]"
					}
					fmt.Fprintf(out, "%s  %s  %s%s\n", padRight(f.ID, 28), padRight(f.Name, 32),
						DimStyle.Render(formatBytes(f.Size)), DimStyle.Render(tags))
				}
				return nil
			})
		},
	}
}

func newKBUploadCmd(opts *rootOptions) *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "upload <kb-id> <file>...",
		Short: "Upload documents to a knowledge base",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKBID(args[0])
			if err != nil {
				return err
			}
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				for _, path := range args[1:] {
					f, err := os.Open(path)
					if err != nil {
						return NewCommandError("kb upload", "open file", err)
					}
					err = s.API.UploadKBFile(cmd.Context(), id, filepath.Base(path), f, tags)
					f.Close()
					if err != nil {
						return NewCommandError("kb upload", "upload "+filepath.Base(path), err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Uploaded "+filepath.Base(path)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	return cmd
}

func newKBDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kb-id> <file-id>",
		Short: "Delete a file from a knowledge base",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKBID(args[0])
			if err != nil {
				return err
			}
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				if err := s.API.DeleteKBFile(cmd.Context(), id, args[1]); err != nil {
					return NewCommandError("kb delete", "delete file", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Deleted "+args[1]))
				return nil
			})
		},
	}
}

func newKBUseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "use <on|off>",
		Short:     "Turn knowledge base search in chat on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch strings.ToLower(args[0]) {
			case "on":
				on = true
			case "off":
			default:
				return usageErrorf("kb use: expected on or off, got %q", args[0])
			}
			return withKB(cmd, opts, func(a *app, s *session.Session) error {
				if err := s.SetUseKnowledgeBase(on); err != nil {
					return NewCommandError("kb use", "", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Knowledge base search "+strings.ToLower(args[0])))
				return nil
			})
		},
	}
}

// formatBytes renders a size with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
