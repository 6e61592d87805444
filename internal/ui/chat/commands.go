// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file defines the tea.Cmd constructors that call into the
// view-models. Blocking work runs inside the command goroutine;
// the update loop only ever sees the resulting message.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pjq/chatcat/internal/export"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/vm"
)

// =============================================================================
// STATE STREAM BRIDGES
// =============================================================================

// waitForChatState blocks on the chat state channel and re-arms itself
// from Update after each snapshot.
func waitForChatState(ch <-chan vm.ChatUIState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return chatStreamClosedMsg{}
		}
		return chatStateMsg{state: state}
	}
}

// waitForSettingsState blocks on the settings state channel.
func waitForSettingsState(ch <-chan vm.SettingsUIState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return settingsStreamClosedMsg{}
		}
		return settingsStateMsg{state: state}
	}
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

// sendMessageCmd runs the full request cycle, including streaming, in a
// command goroutine. Intermediate transcript updates arrive separately
// through the chat state stream.
func sendMessageCmd(ctx context.Context, chatVM *vm.ChatViewModel, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: chatVM.SendMessage(ctx, text)}
	}
}

// resendMessageCmd repeats a previously sent user message.
func resendMessageCmd(ctx context.Context, chatVM *vm.ChatViewModel, msg model.Message) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: chatVM.ResendMessage(ctx, msg)}
	}
}

// =============================================================================
// SETTINGS COMMANDS
// =============================================================================

// loadModelsCmd refreshes the model list from the active provider.
func loadModelsCmd(ctx context.Context, setVM *vm.SettingsViewModel) tea.Cmd {
	return func() tea.Msg {
		_ = setVM.LoadAvailableModels(ctx)
		return modelsLoadedMsg{}
	}
}

// switchProviderCmd activates a provider. Credential propagation and the
// model list refresh happen inside the view-model.
func switchProviderCmd(ctx context.Context, setVM *vm.SettingsViewModel, id string) tea.Cmd {
	return func() tea.Msg {
		_ = setVM.SetActiveProvider(ctx, id)
		return modelsLoadedMsg{}
	}
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

// exportCmd writes the conversation to disk in the given format.
func exportCmd(conv model.Conversation, exporter export.Exporter, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		path, err := export.ToFile(&conv, exporter, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

// =============================================================================
// STATUS MESSAGE TIMEOUT
// =============================================================================

// clearStatusCmd clears a transient status message after a delay.
func clearStatusCmd(after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}
