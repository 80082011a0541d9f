// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for crewchat.
//
// Supports both TOML and JSON configuration formats, with built-in agent
// profiles, environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AgentProfile: One tenant (server agent name, storage prefix, presentation)
//   - StreamConfig: Watchdog, timeouts and refresh throttling
//   - Watcher: Debounced reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CREWCHAT_*)
//   - ~/.crewchat/config.toml
//   - ~/.crewchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Pick the agent profile:
//
//	profile := cfg.ActiveProfile()
//	client := api.NewClientWithConfig(cfg.APIConfig(profile, logger))
package config
