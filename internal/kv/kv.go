// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import "errors"

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: key not found")

// ErrClosed is returned when an operation is attempted on a closed store.
var ErrClosed = errors.New("kv: store closed")

// Store is the storage contract for ChatCat's persistence layers.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Has reports whether key exists.
	Has(key string) (bool, error)

	// Keys returns all keys with the given prefix in lexicographic order.
	// An empty prefix returns every key.
	Keys(prefix string) ([]string, error)

	// Close releases underlying resources. Subsequent calls return ErrClosed.
	Close() error
}
