// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ChatCat TUI.

Colors are organized as palettes selected from the persisted theme
preference: ThemeDark and ThemeLight force their palette, ThemeSystem
follows the terminal background.

# Color System (colors.go)

Each Palette carries accent, surface, text, and message bubble colors:

	Accent   - assistant highlights and selections
	Brand    - user highlights, prompts
	Success  - availability indicator, saved state
	Error    - failed requests, error bubbles

# Theme System (theme.go)

The Theme struct holds every configured lipgloss style. Rebuild it when
the user changes the theme preference:

	theme := styles.NewTheme(prefs.Theme())
	bubble := theme.BubbleFor(msg.Role, msg.IsError)

# Status Indicators

ASCII shape indicators accompany colors for colorblind users:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	StatusIndicators.Warning - [!]
*/
package styles
