// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file contains the update loop. Messages from the view-model state
// streams refresh the cached snapshots; key presses translate into
// view-model calls wrapped in commands.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pjq/chatcat/internal/export"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/session"
	"github.com/pjq/chatcat/internal/ui/styles"
	"github.com/pjq/chatcat/internal/vm"
)

// statusDisplayTime is how long transient status messages stay visible.
const statusDisplayTime = 4 * time.Second

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	// ==========================================================================
	// STATE STREAMS
	// ==========================================================================

	case chatStateMsg:
		if conversationChanged(m.chatState, msg.state) {
			m.app.Session.MarkDirty()
		}
		m.chatState = msg.state
		m.app.Session.RecordActivity()
		m.refreshTranscript()
		return m, waitForChatState(m.chatCh)

	case settingsStateMsg:
		prevTheme := m.settingsState.Preferences.Theme
		m.settingsState = msg.state
		m.settings.sync(msg.state)
		m.app.Session.SetAutoSaveEnabled(msg.state.Preferences.AutoSaveEnabled)
		m.app.Session.SetAutoSaveInterval(time.Duration(msg.state.Preferences.AutoSaveIntervalMin) * time.Minute)
		if msg.state.Preferences.Theme != prevTheme {
			m.applyTheme()
			m.refreshTranscript()
		}
		return m, waitForSettingsState(m.settingsCh)

	case chatStreamClosedMsg, settingsStreamClosedMsg:
		// The application is shutting down underneath the UI.
		return m, tea.Quit

	// ==========================================================================
	// OPERATION RESULTS
	// ==========================================================================

	case sendDoneMsg:
		m.sending = false
		m.sendCancel = nil
		if msg.err != nil {
			// The transcript already shows the error message; the status
			// bar just confirms nothing is in flight anymore.
			m.statusMsg = styles.StatusIndicators.Error + " request failed"
			return m, clearStatusCmd(statusDisplayTime)
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.statusMsg = styles.StatusIndicators.Error + " export failed: " + msg.err.Error()
		} else {
			m.statusMsg = styles.StatusIndicators.Success + " exported to " + msg.path
		}
		return m, clearStatusCmd(statusDisplayTime)

	case modelsLoadedMsg:
		return m, nil

	case statusClearMsg:
		m.statusMsg = ""
		return m, nil

	// ==========================================================================
	// HOUSEKEEPING
	// ==========================================================================

	case session.TickMsg:
		return m, m.app.Session.HandleTick()

	case session.AutoSaveMsg:
		mgr := m.app.Session
		return m, func() tea.Msg {
			mgr.Check()
			return nil
		}

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// conversationChanged reports whether persisted conversation data differs
// between two snapshots. Flag-only refreshes (loading, streaming, error
// text) must not mark the session dirty, or the auto-save tick would
// re-save conversations that never changed.
func conversationChanged(prev, next vm.ChatUIState) bool {
	if len(prev.Conversations) != len(next.Conversations) {
		return true
	}
	if (prev.Current == nil) != (next.Current == nil) {
		return true
	}
	if prev.Current == nil {
		return false
	}
	return prev.Current.ID != next.Current.ID ||
		len(prev.Current.Messages) != len(next.Current.Messages) ||
		!prev.Current.UpdatedAt.Equal(next.Current.UpdatedAt)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = m.transcriptHeight()
	m.input.Width = m.transcriptWidth() - 4

	m.rebuildMarkdown()
	m.refreshTranscript()
	m.ready = true
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit works from anywhere.
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.screen == screenSettings {
		return m.handleSettingsKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Settings):
		m.screen = screenSettings
		m.settings.sync(m.settingsState)
		return m, loadModelsCmd(context.Background(), m.app.SetVM)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keys.Cancel):
		if m.sending {
			m.app.ChatVM.CancelRequest()
			if m.sendCancel != nil {
				m.sendCancel()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Resend):
		return m.resendLast()

	case key.Matches(msg, m.keys.NewConversation):
		if _, err := m.app.ChatVM.NewConversation(); err != nil {
			m.statusMsg = styles.StatusIndicators.Error + " " + err.Error()
			return m, clearStatusCmd(statusDisplayTime)
		}
		m.followTail = true
		return m, nil

	case key.Matches(msg, m.keys.DeleteConversation):
		if cur := m.chatState.Current; cur != nil {
			if err := m.app.ChatVM.DeleteConversation(cur.ID); err != nil {
				m.statusMsg = styles.StatusIndicators.Error + " " + err.Error()
				return m, clearStatusCmd(statusDisplayTime)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.NextConversation):
		m.selectAdjacent(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevConversation):
		m.selectAdjacent(-1)
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m.exportCurrent()

	case key.Matches(msg, m.keys.Up):
		m.followTail = false
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		if m.viewport.AtBottom() {
			m.followTail = true
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.followTail = false
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		if m.viewport.AtBottom() {
			m.followTail = true
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput sends the input buffer through the chat view-model. Blank
// input and in-flight requests are ignored.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" || m.sending {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.sending = true
	m.sendCancel = cancel
	m.followTail = true
	m.input.Reset()

	return m, tea.Batch(
		sendMessageCmd(ctx, m.app.ChatVM, text),
		m.spin.Tick,
	)
}

// resendLast repeats the most recent user message in the current
// conversation.
func (m Model) resendLast() (tea.Model, tea.Cmd) {
	cur := m.chatState.Current
	if cur == nil || m.sending {
		return m, nil
	}
	for i := len(cur.Messages) - 1; i >= 0; i-- {
		if cur.Messages[i].Role == model.RoleUser {
			ctx, cancel := context.WithCancel(context.Background())
			m.sending = true
			m.sendCancel = cancel
			m.followTail = true
			return m, tea.Batch(
				resendMessageCmd(ctx, m.app.ChatVM, cur.Messages[i]),
				m.spin.Tick,
			)
		}
	}
	return m, nil
}

// exportCurrent writes the current conversation as markdown next to the
// data directory.
func (m Model) exportCurrent() (tea.Model, tea.Cmd) {
	cur := m.chatState.Current
	if cur == nil {
		return m, nil
	}
	opts := export.DefaultOptions()
	if dir, err := m.app.Config.ExportDir(); err == nil {
		opts.OutputDir = dir
	}
	return m, exportCmd(*cur, export.NewMarkdownExporter(opts), opts)
}

// selectAdjacent moves the current conversation selection by delta.
func (m *Model) selectAdjacent(delta int) {
	convs := m.chatState.Conversations
	if len(convs) == 0 {
		return
	}
	idx := -1
	if cur := m.chatState.Current; cur != nil {
		for i, c := range convs {
			if c.ID == cur.ID {
				idx = i
				break
			}
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(convs) {
		idx = len(convs) - 1
	}
	if err := m.app.ChatVM.SelectConversation(convs[idx].ID); err == nil {
		m.followTail = true
	}
}
