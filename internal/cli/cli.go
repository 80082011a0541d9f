// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/session"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	agent      string
	configPath string
	verbose    bool
	json       bool
	ephemeral  bool
}

// Execute runs the command tree against os.Args and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		jsonMode, _ := cmd.PersistentFlags().GetBool("json")
		DisplayError(cmd.ErrOrStderr(), err, jsonMode)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// NewRootCmd builds the crewchat command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var plain bool

	cmd := &cobra.Command{
		Use:   "crewchat",
		Short: "Terminal client for multi-agent crew chat",
		Long: "crewchat talks to a crew chat server: streamed answers, visible thinking " +
			"steps, crew routing, conversation history and knowledge bases.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, plain)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.agent, "agent", "a", "", "agent profile id or name (default from config)")
	pf.StringVar(&opts.configPath, "config", "", "path to a config file (default ~/.crewchat/config.toml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&opts.json, "json", false, "JSON output for listing commands")
	pf.BoolVar(&opts.ephemeral, "ephemeral", false, "keep user id and preferences in memory only")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented REPL even on a terminal")

	cmd.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newHistoryCmd(opts),
		newShowCmd(opts),
		newRenameCmd(opts),
		newDeleteCmd(opts),
		newNewCmd(opts),
		newExportCmd(opts),
		newCrewCmd(opts),
		newKBCmd(opts),
		newConfigCmd(opts),
		newAgentsCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented REPL even on a terminal")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crewchat %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

// runChat picks the full-screen chat or the REPL.
func runChat(cmd *cobra.Command, opts *rootOptions, plain bool) error {
	tui := !plain && IsInteractive()
	a, err := opts.open(cmd, tui)
	if err != nil {
		return err
	}
	defer a.Close()

	if tui {
		return runTUI(cmd.Context(), a)
	}
	configureColors()
	return runREPL(cmd, a)
}

// =============================================================================
// APPLICATION BOOTSTRAP
// =============================================================================

// app is the loaded configuration, logger and store for one invocation.
type app struct {
	cfg     *config.Config
	cfgPath string
	profile config.AgentProfile
	log     *logging.Logger
	store   localstore.Store
	json    bool
}

// open loads configuration and opens the local store. The full-screen
// chat logs to a file; everything else logs to stderr.
func (o *rootOptions) open(cmd *cobra.Command, logToFile bool) (*app, error) {
	cfg, path, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	profile, err := resolveProfile(cfg, o.agent)
	if err != nil {
		return nil, err
	}

	log, err := o.logger(cmd, cfg, logToFile)
	if err != nil {
		return nil, err
	}

	var (
		store     localstore.Store = localstore.NewMemory()
		statePath                  = "memory"
	)
	if !o.ephemeral {
		statePath, err = cfg.StatePath()
		if err != nil {
			log.Close()
			return nil, NewCommandError(cmd.Name(), "locate state database", err)
		}
		store, err = localstore.Open(statePath)
		if err != nil {
			log.Close()
			return nil, NewCommandError(cmd.Name(), "open state database", err)
		}
	}

	log.Debug("APP_OPEN", "agent", profile.ID, "config", path, "state", statePath)
	return &app{cfg: cfg, cfgPath: path, profile: profile, log: log, store: store, json: o.json}, nil
}

// loadConfig returns the configuration and the file it came from, or ""
// when running on defaults.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	if o.configPath != "" {
		cfg, err := config.LoadFromPath(o.configPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, o.configPath, nil
	}

	cfg, err := config.Load()
	if cfg == nil {
		return nil, "", err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("config: "+err.Error()+" (using defaults)"))
	}
	for _, locate := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		if p, perr := locate(); perr == nil {
			if _, serr := os.Stat(p); serr == nil {
				return cfg, p, nil
			}
		}
	}
	return cfg, "", nil
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg *config.Config, toFile bool) (*logging.Logger, error) {
	level := cfg.Level()
	if o.verbose {
		level = logging.LevelDebug
	}
	if toFile {
		path, err := cfg.LogPath()
		if err != nil {
			return nil, err
		}
		return logging.NewFile(path, level)
	}
	// Informational events would interleave with command output.
	if !o.verbose && level > logging.LevelWarn {
		level = logging.LevelWarn
	}
	return logging.New(cmd.ErrOrStderr(), level), nil
}

func resolveProfile(cfg *config.Config, name string) (config.AgentProfile, error) {
	if name == "" {
		return cfg.ActiveProfile(), nil
	}
	p, ok := cfg.Profile(name)
	if !ok {
		return config.AgentProfile{}, usageErrorf("unknown agent %q (configured: %s)",
			name, strings.Join(cfg.ProfileIDs(), ", "))
	}
	return p, nil
}

// session wires a chat session for the selected profile.
func (a *app) session() *session.Session {
	p := a.profile
	return session.New(session.NewContext(session.Options{
		Config:  a.cfg,
		Profile: &p,
		Store:   a.store,
		Logger:  a.log,
	}))
}

// Close releases the store and logger.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	a.log.Close()
}
