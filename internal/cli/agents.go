// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agent profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return NewCommandError("agents", "load config", err)
			}
			active := cfg.ActiveProfile().ID
			if opts.agent != "" {
				p, err := resolveProfile(cfg, opts.agent)
				if err != nil {
					return err
				}
				active = p.ID
			}

			rows := make([]AgentData, 0, len(cfg.Agents))
			for _, p := range cfg.Agents {
				rows = append(rows, AgentData{
					ID:          p.ID,
					AgentName:   p.AgentName,
					DisplayName: p.DisplayName,
					BaseURL:     cfg.ResolveBaseURL(p),
					Default:     p.ID == active,
				})
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return NewJSONResponse("agents", rows).Fprint(out)
			}
			for _, r := range rows {
				marker := " "
				if r.Default {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s %s %s\n", marker, padRight(r.ID, 12), padRight(r.DisplayName, 16), DimStyle.Render(r.AgentName+"  "+r.BaseURL))
			}
			return nil
		},
	}
}
