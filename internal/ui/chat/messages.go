// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file defines the message types that bridge view-model state
// streams and asynchronous operations into the Bubble Tea update loop.
package chat

import (
	"github.com/pjq/chatcat/internal/vm"
)

// =============================================================================
// STATE STREAM MESSAGES
// =============================================================================

// chatStateMsg carries a new chat view-model snapshot.
type chatStateMsg struct {
	state vm.ChatUIState
}

// settingsStateMsg carries a new settings view-model snapshot.
type settingsStateMsg struct {
	state vm.SettingsUIState
}

// chatStreamClosedMsg signals the chat subscription ended.
type chatStreamClosedMsg struct{}

// settingsStreamClosedMsg signals the settings subscription ended.
type settingsStreamClosedMsg struct{}

// =============================================================================
// OPERATION RESULT MESSAGES
// =============================================================================

// sendDoneMsg reports completion of a send, streaming or not. The
// transcript itself arrives through chatStateMsg snapshots; this only
// releases the input area.
type sendDoneMsg struct {
	err error
}

// exportDoneMsg reports the result of a conversation export.
type exportDoneMsg struct {
	path string
	err  error
}

// modelsLoadedMsg reports that the model list refresh finished. The list
// itself arrives through settingsStateMsg.
type modelsLoadedMsg struct{}

// statusClearMsg clears a transient status bar message.
type statusClearMsg struct{}
