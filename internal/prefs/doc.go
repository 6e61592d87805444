// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists user preferences over the key-value store.
//
// Each preference lives under its own key. Scalar values are stored as
// plain strings; structured values (the default model configuration and
// the provider list) are stored as JSON. Reads never fail: a missing or
// corrupt value yields the documented default and a warning in the log,
// so one bad record cannot take down settings as a whole.
//
// # Key Types
//
//   - Store: typed accessors over the raw key-value backend
//
// # Usage
//
//	p := prefs.New(db, log)
//	theme := p.Theme()
//	if err := p.SetTheme(model.ThemeDark); err != nil { ... }
//
// Writes are synchronous: when a setter returns nil the value is durable,
// and the updated snapshot has been published to subscribers.
package prefs
