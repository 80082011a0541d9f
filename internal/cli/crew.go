// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/crew"
	"github.com/jeranaias/crewchat/internal/session"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// CREW COMMANDS
// =============================================================================

func newCrewCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crew",
		Short: "Show the agent's crew and the pinned member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				s.Crew.Load(cmd.Context())
				return printCrew(cmd.OutOrStdout(), s, a.json)
			})
		},
	}
	cmd.AddCommand(newCrewSetCmd(opts), newCrewClearCmd(opts))
	return cmd
}

func newCrewSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Prefer a crew member for the following turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				s.Crew.Load(cmd.Context())
				if !s.Crew.HasCrew() {
					return NewCommandError("crew set", "", errors.New(s.Profile.DisplayName+" has no crew"))
				}
				if err := s.Crew.SetOverride(args[0]); err != nil {
					if errors.Is(err, crew.ErrUnknownMember) {
						return usageErrorf("crew set: unknown member %q (see 'crewchat crew')", args[0])
					}
					return NewCommandError("crew set", "", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Turns now prefer "+args[0]))
				return nil
			})
		},
	}
}

func newCrewClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Return to automatic crew routing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(a *app, s *session.Session) error {
				s.Crew.ClearOverride()
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Crew routing is automatic"))
				return nil
			})
		},
	}
}

func printCrew(w io.Writer, s *session.Session, jsonMode bool) error {
	snap := s.Crew.Snapshot()

	if jsonMode {
		data := CrewData{Agent: s.AgentName(), Override: snap.Override, Members: []CrewMember{}}
		for _, m := range snap.Roster {
			data.Members = append(data.Members, CrewMember{
				Name:        m.Name,
				DisplayName: m.Label(),
				Description: m.Description,
				IsDefault:   m.IsDefault,
				ToolCount:   m.ToolCount,
			})
		}
		return NewJSONResponse("crew", data).Fprint(w)
	}

	if !snap.HasCrew {
		fmt.Fprintln(w, DimStyle.Render(s.Profile.DisplayName+" has no crew"))
		return nil
	}

	fmt.Fprintln(w, TitleStyle.Render(s.Profile.DisplayName+" crew"))
	for _, m := range snap.Roster {
		marks := ""
		if m.IsDefault {
			marks += " default"
		}
		if m.Name == snap.Override {
			marks += " pinned"
		}
		fmt.Fprintf(w, "  %s %s%s\n", padRight(m.Name, 18), m.Label(), DimStyle.Render(marks))
		if m.Description != "" {
			fmt.Fprintf(w, "  %s %s\n", padRight("", 18), DimStyle.Render(m.Description))
		}
	}
	if snap.Override == "" {
		fmt.Fprintln(w, DimStyle.Render("Routing: automatic"))
	}
	return nil
}
