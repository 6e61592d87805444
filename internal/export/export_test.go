// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjq/chatcat/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation("Recursion basics")
	conv.AddMessage(model.NewUserMessage("Explain recursion"))
	conv.AddMessage(model.NewAssistantMessage("A function calling itself.\n\n```go\nfunc f() { f() }\n```"))
	return conv
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleConversation())
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "# Recursion basics")
	assert.Contains(t, md, "[User]")
	assert.Contains(t, md, "[Assistant]")
	assert.Contains(t, md, "```go")
	assert.Contains(t, md, "generator: chatcat")
}

func TestMarkdownExportErrorMessageLabelled(t *testing.T) {
	conv := sampleConversation()
	conv.AddMessage(model.NewErrorMessage("API request failed with status: 500"))

	out, err := NewMarkdownExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[Assistant - Error]")
}

func TestMarkdownExportEmptyConversation(t *testing.T) {
	conv := model.NewConversation("empty")
	_, err := NewMarkdownExporter(nil).Export(conv)
	assert.Error(t, err)
}

func TestJSONExportRoundTrips(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter().Export(conv)
	require.NoError(t, err)

	var decoded model.Conversation
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, conv.ID, decoded.ID)
	assert.Len(t, decoded.Messages, 2)
}

func TestHTMLExportEscapesContent(t *testing.T) {
	conv := model.NewConversation("XSS <script>")
	conv.AddMessage(model.NewAssistantMessage("```<script>alert('x')</script>\ncode\n```"))

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)

	page := string(out)
	assert.NotContains(t, page, "<script>alert")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestHTMLExportThemeClass(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="light-theme"`)
}

func TestToFileWritesAtomically(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := Markdown(sampleConversation(), opts)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".md"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Recursion basics")

	// no temp files left behind
	entries, err := os.ReadDir(opts.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{`a/b\c:d`, "a-b-c-d"},
		{"", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestExportedFilenameUsesTitle(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := JSON(sampleConversation(), opts)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "Recursion_basics")
}
