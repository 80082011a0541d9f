// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
)

var (
	codeBlockRe  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a self-contained HTML page.
type HTMLExporter struct {
	options *Options
	now     func() time.Time
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, now: time.Now}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	theme := e.theme()
	title := html.EscapeString(t.DisplayTitle())

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"crewchat\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n    <div class=\"container\">\n", theme)

	fmt.Fprintf(&sb, "        <header class=\"header\">\n            <h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                <span><strong>Agent:</strong> %s</span>\n", html.EscapeString(t.AgentName))
		fmt.Fprintf(&sb, "                <span><strong>Started:</strong> %s</span>\n", formatTimestamp(t.started()))
		fmt.Fprintf(&sb, "                <span><strong>Messages:</strong> %d</span>\n", len(t.Messages))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range t.Messages {
		e.renderMessage(&sb, t, i)
	}
	sb.WriteString("        </main>\n")

	fmt.Fprintf(&sb, "        <footer class=\"footer\">Exported from <strong>crewchat</strong> on %s</footer>\n",
		e.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(sb *strings.Builder, t *Transcript, i int) {
	msg := t.Messages[i]
	fmt.Fprintf(sb, "            <div class=\"message %s-message\">\n", msg.Role.String())

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(t.Speaker(msg)))
	if ts := formatShortTimestamp(msg.Timestamp); e.options.IncludeTimestamps && ts != "" {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", ts)
	}
	sb.WriteString("                </div>\n")

	if msg.IsAssistant() && e.options.IncludeThinking {
		if lines := thinkingLines(msg.ThinkingSteps); len(lines) > 0 {
			sb.WriteString("                <details class=\"thinking\"><summary>Thinking</summary><ul>\n")
			for _, l := range lines {
				fmt.Fprintf(sb, "                    <li>%s</li>\n", html.EscapeString(l))
			}
			sb.WriteString("                </ul></details>\n")
		}
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(formatContent(msg.Content, e.theme()))
	sb.WriteString("\n                </div>\n            </div>\n")
}

func (e *HTMLExporter) theme() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// formatContent escapes content, then turns fenced and inline code into
// markup and blank-line separated text into paragraphs. Fenced blocks with a
// known language are highlighted inline.
func formatContent(content, theme string) string {
	content = html.EscapeString(strings.TrimSpace(content))

	var blocks []string
	content = codeBlockRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRe.FindStringSubmatch(match)
		lang := parts[1]
		label := ""
		if lang != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang)
		}
		code := strings.TrimRight(parts[2], "\n")
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code class=\"language-%s\">%s</code></pre></div>",
			label, lang, highlightCode(code, lang, theme)))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "\x00") && strings.HasSuffix(para, "\x00") {
			out = append(out, para)
			continue
		}
		para = inlineCodeRe.ReplaceAllString(para, "<code class=\"inline-code\">$1</code>")
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>\n")+"</p>")
	}

	result := strings.Join(out, "\n")
	for i, b := range blocks {
		result = strings.Replace(result, fmt.Sprintf("\x00%d\x00", i), b, 1)
	}
	return result
}

// highlightCode takes already escaped code and returns chroma markup with
// inline styles, or the escaped code unchanged when no lexer matches.
func highlightCode(escaped, lang, theme string) string {
	if lang == "" {
		return escaped
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return escaped
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromastyles.Get(styleName)

	it, err := lexer.Tokenise(nil, html.UnescapeString(escaped))
	if err != nil {
		return escaped
	}
	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.PreventSurroundingPre(true))
	if err := formatter.Format(&buf, style, it); err != nil {
		return escaped
	}
	return buf.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", Menlo, "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #111827;
            --bg-secondary: #1f2937;
            --bg-tertiary: #374151;
            --text-primary: #f3f4f6;
            --text-muted: #9ca3af;
            --border-color: #374151;
            --accent-user: #a78bfa;
            --accent-assistant: #22d3ee;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --bg-tertiary: #e5e7eb;
            --text-primary: #111827;
            --text-muted: #6b7280;
            --border-color: #e5e7eb;
            --accent-user: #7c3aed;
            --accent-assistant: #0891b2;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
            background: var(--bg-secondary);
            border-radius: 12px;
            overflow: hidden;
        }

        .header { padding: 28px 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-muted); }

        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 20px; padding: 18px; border-radius: 8px; border-left: 4px solid transparent; }
        .user-message { border-left-color: var(--accent-user); }
        .assistant-message { border-left-color: var(--accent-assistant); background: var(--bg-primary); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 10px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--text-muted); font-family: var(--font-mono); font-size: 13px; }
        .message-content p { margin-bottom: 12px; }
        .message-content p:last-child { margin-bottom: 0; }

        .thinking { margin-bottom: 10px; font-size: 14px; color: var(--text-muted); }
        .thinking ul { margin: 6px 0 0 20px; }

        .code-block { margin: 14px 0; border: 1px solid var(--border-color); border-radius: 8px; overflow: hidden; }
        .code-lang { padding: 6px 14px; background: var(--bg-tertiary); font-size: 12px; text-transform: uppercase; }
        .code-block pre { padding: 14px; overflow-x: auto; }
        .code-block code, .inline-code { font-family: var(--font-mono); font-size: 14px; }
        .inline-code { padding: 2px 6px; background: var(--bg-tertiary); border-radius: 4px; }

        .footer { padding: 18px 32px; text-align: center; font-size: 14px; color: var(--text-muted); }

        @media print {
            body { padding: 0; }
            .message { page-break-inside: avoid; }
        }
    </style>
`
