// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
package chat

// padRight pads a string with spaces to the given display width.
func padRight(s string, width int) string {
	for len([]rune(s)) < width {
		s += " "
	}
	return s
}
