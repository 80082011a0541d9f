// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files.
//
// # Key Types
//
//   - Transcript: One conversation's messages plus the labels needed to print them
//   - Exporter: Renders a transcript in one format
//   - Options: Metadata, timestamps, thinking steps and HTML theme
//
// # Supported Formats
//
//   - Markdown: Human-readable, with YAML frontmatter
//   - JSON: The transcript as-is
//   - HTML: Self-contained page with embedded CSS
//
// # Usage
//
//	exp, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(transcript, exp, "")
package export
