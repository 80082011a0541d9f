// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// INIT (FIRST-RUN SETUP)
// =============================================================================

// initOptions are the answers the setup flow collects. Flags pre-fill them;
// with --yes no questions are asked.
type initOptions struct {
	agent   string
	baseURL string
	theme   string
	yes     bool
	force   bool
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	answers := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file: default agent, server and theme",
		Example: `  crewchat init
  crewchat init --yes --agent aspect --base-url https://chat.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, answers)
		},
	}
	f := cmd.Flags()
	f.StringVar(&answers.agent, "default-agent", "", "default agent profile")
	f.StringVar(&answers.baseURL, "base-url", "", "server base URL for every agent")
	f.StringVar(&answers.theme, "theme", "", "auto, dark or light")
	f.BoolVarP(&answers.yes, "yes", "y", false, "accept defaults without prompting")
	f.BoolVar(&answers.force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, answers *initOptions) error {
	out := cmd.OutOrStdout()
	path := opts.configPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return NewCommandError("init", "locate config directory", err)
		}
		path = p
	}

	cfg, err := config.LoadForEdit(path)
	if err != nil {
		return NewCommandError("init", "read "+path, err)
	}
	if _, err := os.Stat(path); err == nil && !answers.force {
		if answers.yes {
			return usageErrorf("init: %s already exists (use --force to overwrite)", path)
		}
	}

	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out, yes: answers.yes}

	fmt.Fprintln(out, TitleStyle.Render("crewchat setup"))
	fmt.Fprintln(out, RenderSeparator(GetTerminalWidth()))
	fmt.Fprintln(out, RenderLabel("Config file", path))
	fmt.Fprintln(out, RenderLabel("Platform", runtime.GOOS+"/"+runtime.GOARCH))
	fmt.Fprintln(out)

	// Agent
	ids := cfg.ProfileIDs()
	agent := answers.agent
	if agent == "" {
		agent = opts.agent
	}
	if agent == "" {
		for i, id := range ids {
			prof, _ := cfg.Profile(id)
			fmt.Fprintf(out, "  [%d] %s  %s\n", i+1, padRight(id, 10), DimStyle.Render(prof.DisplayName))
		}
		choice := p.ask(fmt.Sprintf("Default agent [1-%d]", len(ids)), "1")
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(ids) {
			agent = ids[n-1]
		} else {
			agent = choice
		}
	}
	prof, ok := cfg.Profile(agent)
	if !ok {
		return usageErrorf("init: unknown agent %q (configured: %s)", agent, strings.Join(ids, ", "))
	}
	cfg.DefaultAgent = prof.ID

	// Server
	baseURL := answers.baseURL
	if baseURL == "" {
		baseURL = p.ask("Server base URL", cfg.ResolveBaseURL(prof))
	}
	if baseURL != cfg.ResolveBaseURL(prof) || cfg.BaseURL != "" {
		cfg.BaseURL = baseURL
	}

	// Theme
	theme := answers.theme
	if theme == "" {
		theme = p.ask("Theme (auto, dark, light)", cfg.UI.Theme)
	}
	cfg.UI.Theme = strings.ToLower(theme)

	if err := cfg.Validate(); err != nil {
		return &CommandError{Command: "init", Err: err}
	}

	fmt.Fprintln(out)
	probeServer(cmd.Context(), out, cfg, prof)

	if _, err := os.Stat(path); err == nil && !answers.force {
		if !strings.HasPrefix(strings.ToLower(p.ask("Overwrite existing config? [y/N]", "n")), "y") {
			fmt.Fprintln(out, styles.RenderWarning("Left "+path+" unchanged"))
			return nil
		}
	}

	if err := config.SaveTo(cfg, path); err != nil {
		return NewCommandError("init", "save config", err)
	}
	fmt.Fprintln(out, styles.RenderSuccess("Created config: "+path))

	if dir, err := cfg.DataDir(); err == nil {
		if err := os.MkdirAll(dir, 0700); err == nil {
			fmt.Fprintln(out, styles.RenderSuccess("Data directory: "+dir))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Start chatting with:")
	fmt.Fprintln(out, "    crewchat")
	return nil
}

// probeServer reports whether the agent's crew endpoint answers. A failure
// is a warning; the config is still written.
func probeServer(ctx context.Context, out io.Writer, cfg *config.Config, prof config.AgentProfile) {
	apiCfg := cfg.APIConfig(prof, nil)
	apiCfg.Timeout = 5 * time.Second
	apiCfg.MaxRetries = 1
	client := api.NewClientWithConfig(apiCfg)

	crew, err := client.FetchCrew(ctx, prof.AgentName)
	switch {
	case err == nil:
		fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Server: reachable (%d crew members)", len(crew))))
	case api.IsNotFound(err):
		fmt.Fprintln(out, styles.RenderSuccess("Server: reachable (no crew endpoint)"))
	default:
		fmt.Fprintln(out, styles.RenderWarning("Server: "+err.Error()))
		fmt.Fprintln(out, DimStyle.Render("  Check the URL; you can change it later with 'crewchat config set base_url URL'."))
	}
}

// prompter asks line-based questions, answering defaults when yes is set
// or input ends.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func (p *prompter) ask(question, def string) string {
	if p.yes {
		return def
	}
	fmt.Fprintf(p.out, "%s %s: ", question, DimStyle.Render("["+def+"]"))
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return def
	}
	if line == "" {
		return def
	}
	return line
}
