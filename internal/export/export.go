// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/util"
)

// ErrEmptyTranscript is returned for transcripts with no messages.
var ErrEmptyTranscript = errors.New("conversation has no messages")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is one conversation ready for export.
type Transcript struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Agent     string             `json:"agent"`
	AgentName string             `json:"agentName"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Messages  []model.Message    `json:"messages"`
	Crew      []model.CrewMember `json:"crew,omitempty"`
}

// DisplayTitle returns the title, else the start of the first user message.
func (t *Transcript) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	for _, m := range t.Messages {
		if m.IsUser() && strings.TrimSpace(m.Content) != "" {
			return util.TruncateWidth(util.SingleLine(m.Content), 60)
		}
	}
	return "Conversation " + t.ID
}

// Speaker labels a message: "You" for the user, the agent name otherwise,
// with the crew member's display name when one handled the turn.
func (t *Transcript) Speaker(m model.Message) string {
	if m.IsUser() {
		return "You"
	}
	agent := t.Agent
	if agent == "" {
		agent = m.Role.DisplayName()
	}
	if m.CrewMember == "" {
		return agent
	}
	name := m.CrewMember
	if c, ok := model.FindCrew(t.Crew, name); ok {
		name = c.Label()
	}
	return agent + " / " + name
}

// started returns CreatedAt, falling back to the first message time.
func (t *Transcript) started() time.Time {
	if !t.CreatedAt.IsZero() {
		return t.CreatedAt
	}
	for _, m := range t.Messages {
		if !m.Timestamp.IsZero() {
			return m.Timestamp
		}
	}
	return time.Time{}
}

func (t *Transcript) validate() error {
	if t == nil {
		return fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Options configures exporters.
type Options struct {
	// OutputDir receives generated file names. Default: current directory.
	OutputDir string

	IncludeMetadata   bool
	IncludeTimestamps bool
	// IncludeThinking lists each reply's thinking steps.
	IncludeThinking bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeThinking:   true,
		Theme:             "dark",
	}
}

// Formats lists the names ForFormat accepts.
var Formats = []string{"markdown", "json", "html"}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use %s)", format, strings.Join(Formats, ", "))
	}
}

// ExportToFile renders t and writes it atomically. An empty path picks a
// name from the title and the current time inside the exporter's
// OutputDir. It returns the written path.
func ExportToFile(t *Transcript, exp Exporter, path string) (string, error) {
	content, err := exp.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if path == "" {
		dir := "."
		if o := optionsOf(exp); o != nil && o.OutputDir != "" {
			dir = o.OutputDir
		}
		path = filepath.Join(dir, Filename(t, exp, time.Now()))
	}

	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Filename builds a file name from the title and a timestamp.
func Filename(t *Transcript, exp Exporter, now time.Time) string {
	return fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(t.DisplayTitle()),
		now.Format("20060102_150405"),
		exp.FileExtension(),
	)
}

func optionsOf(exp Exporter) *Options {
	switch e := exp.(type) {
	case *MarkdownExporter:
		return e.options
	case *JSONExporter:
		return e.options
	case *HTMLExporter:
		return e.options
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			out = append(out, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, '_')
		case r < 32 || r == 127:
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "conversation"
	}
	return string(out)
}

// thinkingLines returns one line per step, ordered by step order.
func thinkingLines(steps []model.ThinkingStep) []string {
	lines := make([]string, 0, len(steps))
	for _, s := range model.SortSteps(steps) {
		if d := util.SingleLine(s.Description); d != "" {
			lines = append(lines, d)
		}
	}
	return lines
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04:05")
}
