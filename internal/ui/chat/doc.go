// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea program for the ChatCat TUI.

The package is a thin rendering layer. All domain behavior lives in the
view-models (internal/vm); this package translates their published state
snapshots into tea.Msg values and renders from the latest snapshot. User
input flows the other way, as view-model method calls wrapped in tea.Cmd.

# Key Types

  - Model: the root Bubble Tea model, covering the conversation list,
    message transcript, input area, and the settings screen
  - KeyMap: keyboard bindings with help text

# Screens

The model switches between two screens: the chat screen (sidebar,
transcript, input) and the settings screen (preferences, provider
management). Ctrl+S toggles between them.

# Usage

	application, err := app.New(cfg, log)
	...
	p := tea.NewProgram(chat.NewModel(application), tea.WithAltScreen())
	_, err = p.Run()
*/
package chat
