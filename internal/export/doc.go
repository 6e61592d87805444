// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to shareable files.
//
// # Key Types
//
//   - Exporter: one implementation per output format
//   - Options: output directory, metadata and timestamp toggles, HTML theme
//
// # Supported Formats
//
//   - JSON: the full conversation record, re-importable
//   - Markdown: human-readable with YAML frontmatter
//   - HTML: standalone page with embedded CSS, content escaped
//
// # Usage
//
//	path, err := export.Markdown(conv, export.DefaultOptions())
//
// Files are written atomically; a failed export never leaves a partial file.
package export
