// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/pjq/chatcat/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS. All user and model content is escaped.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.GetTitle())))
	sb.WriteString("    <meta name=\"generator\" content=\"chatcat\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>ChatCat</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

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
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.GetTitle())))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n",
		html.EscapeString(conv.ModelConfig.Model)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n",
		formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n",
		len(conv.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders one message as an article block.
func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	class := string(msg.Role)
	if msg.IsError {
		class += " error"
	}
	sb.WriteString(fmt.Sprintf("            <article class=\"message %s\">\n", class))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role\">%s</span>\n",
		html.EscapeString(msg.Role.DisplayName())))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n",
			formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(renderContent(msg.Content))
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </article>\n")

	return sb.String()
}

// fencedBlock matches a markdown code fence with an optional language label.
var fencedBlock = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// renderContent escapes message text and converts fenced code blocks into
// <pre><code> sections. The language label is escaped too; it is attacker
// controlled when the model echoes user input.
func renderContent(content string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range fencedBlock.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(paragraphs(content[last:loc[0]]))
		lang := html.EscapeString(content[loc[2]:loc[3]])
		code := html.EscapeString(content[loc[4]:loc[5]])
		if lang != "" {
			sb.WriteString(fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang))
		}
		sb.WriteString(fmt.Sprintf("<pre><code>%s</code></pre>", code))
		last = loc[1]
	}
	sb.WriteString(paragraphs(content[last:]))
	return sb.String()
}

// paragraphs escapes plain text and wraps blank-line separated chunks.
func paragraphs(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		sb.WriteString(fmt.Sprintf("<p>%s</p>\n", escaped))
	}
	return sb.String()
}

// =============================================================================
// STYLES
// =============================================================================

// getCSS returns the embedded stylesheet for both themes.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root { --accent: #7c5cff; }
        body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
        body.dark-theme { background: #16161e; color: #c8c8d8; }
        body.light-theme { background: #fafafa; color: #222230; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header h1 { margin-bottom: 0.25rem; }
        .metadata { font-size: 0.85rem; opacity: 0.75; }
        .meta-item { margin-right: 1.25rem; }
        .message { border-radius: 8px; padding: 0.75rem 1rem; margin: 1rem 0; }
        .dark-theme .message.user { background: #22223a; }
        .dark-theme .message.assistant { background: #1c2230; }
        .light-theme .message.user { background: #ececf6; }
        .light-theme .message.assistant { background: #e4ecf2; }
        .message.error { border-left: 3px solid #e05561; }
        .message-header { display: flex; justify-content: space-between; font-size: 0.8rem; opacity: 0.7; margin-bottom: 0.4rem; }
        .role { font-weight: 600; color: var(--accent); }
        pre { overflow-x: auto; padding: 0.75rem; border-radius: 6px; background: rgba(0,0,0,0.35); }
        .light-theme pre { background: #2a2a36; color: #e8e8f0; }
        .code-lang { font-size: 0.75rem; opacity: 0.6; margin-bottom: -0.5rem; }
        .footer { text-align: center; font-size: 0.8rem; opacity: 0.6; margin-top: 2rem; }
    </style>
`
}
