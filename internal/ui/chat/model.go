// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pjq/chatcat/internal/app"
	"github.com/pjq/chatcat/internal/session"
	"github.com/pjq/chatcat/internal/ui/styles"
	"github.com/pjq/chatcat/internal/vm"
)

// =============================================================================
// SCREENS
// =============================================================================

// screen selects which top-level view is active.
type screen int

const (
	screenChat screen = iota
	screenSettings
)

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the root Bubble Tea model for ChatCat.
type Model struct {
	app   *app.App
	theme *styles.Theme
	keys  KeyMap

	width  int
	height int
	ready  bool

	screen   screen
	showHelp bool

	// Latest view-model snapshots. Rendering always works from these;
	// the UI never reaches into the stores directly.
	chatState     vm.ChatUIState
	settingsState vm.SettingsUIState

	// State stream subscriptions
	chatCh        <-chan vm.ChatUIState
	chatUnsub     func()
	settingsCh    <-chan vm.SettingsUIState
	settingsUnsub func()

	// Chat screen components
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// In-flight request. sendCancel aborts the request context; the
	// view-model handles the partial transcript.
	sending    bool
	sendCancel context.CancelFunc

	// Glamour renderer, rebuilt on resize. Nil means plain text.
	markdown *glamour.TermRenderer

	// followTail keeps the viewport pinned to the newest message while
	// streaming. Scrolling up releases it.
	followTail bool

	// Settings screen sub-model
	settings settingsPane

	// Transient status bar message
	statusMsg string
}

// NewModel builds the root model around a wired application.
func NewModel(a *app.App) Model {
	theme := styles.NewTheme(a.Prefs.Theme())

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 0
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = theme.Spinner

	chatCh, chatUnsub := a.ChatVM.Subscribe()
	settingsCh, settingsUnsub := a.SetVM.Subscribe()

	return Model{
		app:           a,
		theme:         theme,
		keys:          DefaultKeyMap(),
		chatState:     a.ChatVM.State(),
		settingsState: a.SetVM.State(),
		chatCh:        chatCh,
		chatUnsub:     chatUnsub,
		settingsCh:    settingsCh,
		settingsUnsub: settingsUnsub,
		input:         input,
		spin:          spin,
		followTail:    true,
		settings:      newSettingsPane(theme),
	}
}

// Init subscribes to the state streams and starts the housekeeping ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChatState(m.chatCh),
		waitForSettingsState(m.settingsCh),
		session.TickCmd(),
		textinput.Blink,
	)
}

// rebuildMarkdown recreates the glamour renderer for the current width.
// Falls back to plain text when the renderer cannot be built.
func (m *Model) rebuildMarkdown() {
	wrap := m.transcriptWidth() - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}

// renderMarkdown renders assistant content, returning the raw content on
// failure or when markdown rendering is disabled.
func (m Model) renderMarkdown(content string) string {
	if m.markdown == nil || !m.app.Prefs.MarkdownEnabled() {
		return content
	}
	rendered, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// applyTheme rebuilds the theme from the current preference and restyles
// the components that cache style values.
func (m *Model) applyTheme() {
	m.theme = styles.NewTheme(m.app.Prefs.Theme())
	m.theme.SetSize(m.width, m.height)
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
	m.spin.Style = m.theme.Spinner
	m.settings.theme = m.theme
}

// Close releases the state stream subscriptions.
func (m Model) Close() {
	if m.sendCancel != nil {
		m.sendCancel()
	}
	if m.chatUnsub != nil {
		m.chatUnsub()
	}
	if m.settingsUnsub != nil {
		m.settingsUnsub()
	}
}
