// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifetime of one UI session and drives
// periodic auto-save of dirty conversation state.
//
// # Key Types
//
//   - Manager: activity and dirty-state tracking with an auto-save timer
//   - TickMsg: Bubble Tea message emitted once a second
//   - AutoSaveMsg: Bubble Tea message emitted when a save is due
//
// # Usage
//
//	mgr := session.NewManager(session.DefaultConfig())
//	mgr.SetAutoSaveCallback(saveFn)
//
// Mark unsaved changes and let the tick loop flush them:
//
//	mgr.MarkDirty()
//	// in Update: case session.TickMsg: return m, mgr.HandleTick()
//
// Auto-save only fires when the session is dirty and the configured
// interval has elapsed since the last successful save.
package session
