// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the ordered key-value storage layer backing the
// preference and conversation stores.
//
// # Key Types
//
//   - Store: the storage contract (get, set, delete, ordered key listing)
//   - Pebble: durable adapter backed by a cockroachdb/pebble database
//   - Memory: in-process adapter for tests and ephemeral sessions
//
// # Usage
//
//	db, err := kv.OpenPebble(filepath.Join(dataDir, "chatcat.db"))
//	if err != nil { ... }
//	defer db.Close()
//	err = db.Set("theme", []byte("dark"))
//
// Both adapters return keys in lexicographic order from Keys, so callers
// can rely on deterministic iteration regardless of backend.
package kv
