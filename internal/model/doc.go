// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// model providers, and user preferences.
//
// This package defines the core domain types used throughout the application.
// All types serialize to JSON for persistence in the key-value store.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, content, timestamp, and attachments
//   - ModelConfig: Per-conversation generation parameters (model, temperature, ...)
//   - ModelProvider: A named API endpoint configuration (URL, key, model)
//   - UserPreferences: The singleton settings aggregate
//
// # Usage
//
// Create a new conversation and append a message:
//
//	conv := model.NewConversation("My chat")
//	conv.AddMessage(model.NewUserMessage("Hello!"))
//
// Look up the active provider:
//
//	prefs := model.DefaultUserPreferences()
//	p := prefs.ActiveProvider()
package model
