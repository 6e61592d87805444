// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vm holds the two view-models sitting between the UI layer and
// the stores and chat client. The UI never touches persistence or the
// network directly: it subscribes to a view-model's state stream and calls
// its command methods.
//
// # Key Types
//
//   - ChatViewModel: conversation selection, message send/resend/delete,
//     streaming orchestration
//   - SettingsViewModel: preference field setters, provider CRUD with an
//     edit buffer, active-provider switching, model list loading
//   - ChatService: the slice of the chat client both view-models need,
//     kept as an interface so tests can substitute a fake
//
// Both view-models publish an immutable snapshot of their UI state after
// every operation. Subscribers always see the latest snapshot; intermediate
// states may be skipped under load.
package vm
