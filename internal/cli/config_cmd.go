// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, opts)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd, opts)
			},
		},
		newConfigGetCmd(opts),
		newConfigSetCmd(opts),
		newConfigPathCmd(opts),
		&cobra.Command{
			Use:   "keys",
			Short: "List settable keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
	)
	return cmd
}

// editPath is the file config set writes: --config, else the file in use,
// else the default TOML location.
func (o *rootOptions) editPath(cmd *cobra.Command) (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	_, path, err := o.loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	return config.ConfigPathTOML()
}

func runConfigShow(cmd *cobra.Command, opts *rootOptions) error {
	cfg, _, err := opts.loadConfig(cmd)
	if err != nil {
		return NewCommandError("config", "load", err)
	}
	if opts.json {
		return NewJSONResponse("config", cfg).Fprint(cmd.OutOrStdout())
	}
	if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg); err != nil {
		return NewCommandError("config", "encode", err)
	}
	return nil
}

func newConfigGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return NewCommandError("config get", "load", err)
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return usageErrorf("config get: %v", err)
			}
			if opts.json {
				return NewJSONResponse("config get", map[string]interface{}{"key": args[0], "value": v}).Fprint(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatConfigValue(v))
			return nil
		},
	}
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting in the config file",
		Example: `  crewchat config set ui.theme light
  crewchat config set stream.stall_timeout 90s
  crewchat config set default_agent aspect`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.editPath(cmd)
			if err != nil {
				return NewCommandError("config set", "locate config file", err)
			}
			cfg, err := config.LoadForEdit(path)
			if err != nil {
				return NewCommandError("config set", "load "+path, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return usageErrorf("config set: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				return &CommandError{Command: "config set", Err: err}
			}
			if err := config.SaveTo(cfg, path); err != nil {
				return NewCommandError("config set", "save", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("%s = %s (%s)", args[0], args[1], path)))
			return nil
		},
	}
}

func newConfigPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.editPath(cmd)
			if err != nil {
				return NewCommandError("config path", "", err)
			}
			note := ""
			if _, err := os.Stat(path); os.IsNotExist(err) {
				note = DimStyle.Render(" (not created yet)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), path+note)
			return nil
		},
	}
}

func formatConfigValue(v interface{}) string {
	switch x := v.(type) {
	case *bool:
		if x == nil {
			return "(unset)"
		}
		return fmt.Sprint(*x)
	case config.Duration:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
