// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists conversations over the key-value backend.
//
// Layout: a single index record under "conversation_ids" holds the
// comma-joined list of known conversation ids, and each conversation is a
// JSON record under "conversation_<id>". The index is rewritten on every
// create and delete so listing never scans the whole keyspace.
//
// A corrupt conversation record is skipped with a warning rather than
// failing the whole listing. Its id stays in the index so the data can be
// recovered by hand if it matters.
//
// # Key Types
//
//   - Store: conversation CRUD plus message-level mutations
//
// # Usage
//
//	cs := store.New(db, log)
//	conv, err := cs.Create("New Conversation")
//	err = cs.AppendMessage(conv.ID, model.NewUserMessage("hello"))
package store
