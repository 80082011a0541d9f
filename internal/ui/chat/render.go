// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdown renders assistant content through glamour. Completed messages
// are cached per id; the cache resets when the wrap width changes.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdown(style string) *markdown {
	return &markdown{style: style, cache: map[string]string{}}
}

// setStyle switches the glamour style, dropping rendered output.
func (md *markdown) setStyle(style string) {
	if style == md.style {
		return
	}
	md.style = style
	md.renderer = nil
	md.cache = map[string]string{}
}

func (md *markdown) ensure(width int) *glamour.TermRenderer {
	if md.renderer != nil && width == md.width {
		return md.renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(md.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	md.renderer = r
	md.width = width
	md.cache = map[string]string{}
	return r
}

// render returns content rendered at width. Only final content is cached.
func (md *markdown) render(id, content string, width int, final bool) string {
	r := md.ensure(width)
	if r == nil {
		return content
	}
	if final {
		if out, ok := md.cache[cacheKey(id, content)]; ok {
			return out
		}
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	if final {
		md.cache[cacheKey(id, content)] = out
	}
	return out
}

func cacheKey(id, content string) string {
	return id + ":" + strconv.Itoa(len(content))
}
