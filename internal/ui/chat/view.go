// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file renders the chat screen: header, conversation sidebar,
// message transcript, input area, and status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/ui/styles"
	"github.com/pjq/chatcat/internal/util"
)

// sidebarWidth is the fixed width of the conversation list.
const sidebarWidth = 28

// =============================================================================
// LAYOUT
// =============================================================================

// transcriptWidth is the width available to the message viewport.
func (m Model) transcriptWidth() int {
	w := m.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	return w
}

// transcriptHeight is the height available to the message viewport.
// Header, input box, and status bar each take fixed rows.
func (m Model) transcriptHeight() int {
	h := m.height - 7
	if h < 3 {
		h = 3
	}
	return h
}

// =============================================================================
// ROOT VIEW
// =============================================================================

// View renders the active screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting ChatCat..."
	}

	if m.screen == screenSettings {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.viewHeader(),
			m.viewSettings(),
			m.viewStatusBar(),
		)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewSidebar(),
		lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			m.viewInput(),
		),
	)

	sections := []string{m.viewHeader(), body, m.viewStatusBar()}
	if m.showHelp {
		sections = append(sections, m.viewHelp())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) viewHeader() string {
	t := m.theme
	title := t.HeaderTitle.Render("ChatCat")

	prov := m.settingsState.ActiveProvider
	sub := fmt.Sprintf("%s / %s", prov.Name, prov.EffectiveModel())
	subtitle := t.HeaderSubtitle.Render(util.TruncateRunes(sub, 48))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(subtitle) - 4
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + subtitle)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) viewSidebar() string {
	t := m.theme
	var b strings.Builder

	convs := m.chatState.Conversations
	if len(convs) == 0 {
		b.WriteString(t.ConvMeta.Render("No conversations"))
		b.WriteString("\n")
		b.WriteString(t.ConvMeta.Render("C-n to start one"))
	}

	currentID := ""
	if m.chatState.Current != nil {
		currentID = m.chatState.Current.ID
	}

	for _, conv := range convs {
		title := conv.Title
		if title == "" {
			title = "New conversation"
		}
		title = util.TruncateWidth(title, sidebarWidth-4)
		meta := fmt.Sprintf("%d msgs", len(conv.Messages))

		if conv.ID == currentID {
			b.WriteString(t.ConvItemSelected.Render(title))
		} else {
			b.WriteString(t.ConvItem.Render(title))
		}
		b.WriteString("\n")
		b.WriteString("  " + t.ConvMeta.Render(meta))
		b.WriteString("\n")
	}

	return t.ConvList.
		Width(sidebarWidth).
		Height(m.transcriptHeight() + 3).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript rebuilds the viewport content from the current
// conversation snapshot.
func (m *Model) refreshTranscript() {
	cur := m.chatState.Current
	if cur == nil {
		m.viewport.SetContent(m.theme.ConvMeta.Render(
			"Start typing to begin a new conversation."))
		return
	}

	var b strings.Builder
	for i, msg := range cur.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.chatState.IsLoading && !m.chatState.IsStreaming {
		b.WriteString("\n" + m.spin.View() + " " + m.theme.ThinkingText.Render("thinking..."))
	}

	m.viewport.SetContent(b.String())
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one message bubble with role label and timestamp.
func (m Model) renderMessage(msg model.Message) string {
	t := m.theme

	label := roleLabel(msg)
	head := t.RoleLabel.Render(label) + " " +
		t.Timestamp.Render(msg.Timestamp.Format("15:04:05"))

	content := msg.Content
	if msg.Role == model.RoleAssistant && !msg.IsError {
		content = strings.TrimRight(m.renderMarkdown(content), "\n")
	}

	bubble := t.BubbleFor(msg.Role, msg.IsError).
		Width(m.transcriptWidth() - 2).
		Render(content)

	if len(msg.Attachments) > 0 {
		var names []string
		for _, a := range msg.Attachments {
			names = append(names, a.Name)
		}
		bubble += "\n" + t.ConvMeta.Render("attachments: "+strings.Join(names, ", "))
	}

	return head + "\n" + bubble
}

func roleLabel(msg model.Message) string {
	if msg.IsError {
		return "Assistant " + styles.StatusIndicators.Error
	}
	switch msg.Role {
	case model.RoleUser:
		return "You"
	case model.RoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) viewInput() string {
	t := m.theme

	if m.sending {
		status := m.spin.View() + " " + t.ThinkingText.Render("waiting for response (Esc to cancel)")
		return t.InputContainer.Width(m.transcriptWidth()).Render(status)
	}

	return t.InputContainer.Width(m.transcriptWidth()).Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) viewStatusBar() string {
	t := m.theme

	left := m.statusMsg
	if left == "" {
		if m.settingsState.IsAPIAvailable {
			left = t.StatusOK.Render(styles.StatusIndicators.Success + " connected")
		} else {
			left = t.StatusBad.Render(styles.StatusIndicators.Error + " offline")
		}
	}

	right := t.ShortcutDesc.Render(m.keys.HelpLine())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) viewHelp() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.SettingsTitle.Render("Keyboard shortcuts") + "\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(t.ShortcutKey.Render(padRight(h.Key, 12)))
			b.WriteString(t.ShortcutDesc.Render(h.Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return t.SettingsBox.Render(strings.TrimRight(b.String(), "\n"))
}
