// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the crewchat command tree.
//
// With no subcommand crewchat opens the full-screen chat when stdin and
// stdout are terminals, and a line-oriented REPL otherwise. Every other
// command is one-shot and supports --json where it lists data.
//
// # Key Types
//
//   - REPL: Line-oriented chat loop over a session, used for --plain and pipes
//   - JSONResponse: Envelope for --json output
//   - CommandError: Error carrying the failing command and an exit code category
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// # Commands Overview
//
//   - chat, ask: Interactive and one-shot turns
//   - history, show, rename, delete, new, export: Conversation management
//   - crew: Roster listing and override pin
//   - kb: Knowledge-base management
//   - config, agents: Configuration inspection and edits
package cli
