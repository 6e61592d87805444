// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file defines keyboard bindings and shortcuts for the interface,
// along with help text generation for the status bar and help overlay.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the ChatCat interface.
// Each binding supports multiple keys and includes help text.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding

	NewConversation    key.Binding
	DeleteConversation key.Binding
	NextConversation   key.Binding
	PrevConversation   key.Binding

	Settings key.Binding
	Export   key.Binding
	Resend   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel request"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		NewConversation: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		DeleteConversation: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete conversation"),
		),
		NextConversation: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+down"),
			key.WithHelp("C-down", "next conversation"),
		),
		PrevConversation: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+up"),
			key.WithHelp("C-up", "previous conversation"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "settings"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export conversation"),
		),
		Resend: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "resend last message"),
		),
	}
}

// =============================================================================
// HELP TEXT GENERATION
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewConversation, k.Settings, k.Export, k.Help, k.Quit}
}

// FullHelp returns all bindings grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.Resend, k.Export},
		{k.NewConversation, k.DeleteConversation, k.NextConversation, k.PrevConversation},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Settings, k.Help, k.Quit},
	}
}

// HelpLine renders a single-line help string for the status bar.
func (k KeyMap) HelpLine() string {
	var parts []string
	for _, b := range k.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  |  ")
}
