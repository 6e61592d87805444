// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the composition root. One App is built at process start
// and owns every shared component; view-models receive their dependencies
// by constructor, never through globals.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/chat"
	"github.com/pjq/chatcat/internal/config"
	"github.com/pjq/chatcat/internal/kv"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/prefs"
	"github.com/pjq/chatcat/internal/session"
	"github.com/pjq/chatcat/internal/store"
	"github.com/pjq/chatcat/internal/vm"
)

// =============================================================================
// APPLICATION
// =============================================================================

// App wires the stores, the chat client, and the view-models over one
// key-value backend.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Backend kv.Store

	Prefs   *prefs.Store
	Convs   *store.Store
	Chat    *chat.Client
	ChatVM  *vm.ChatViewModel
	SetVM   *vm.SettingsViewModel
	Session *session.Manager
}

// New builds the application from a loaded config. The storage backend
// comes from cfg.Storage.Backend: "pebble" for durable state under the
// data directory, "memory" for throwaway runs.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	p := prefs.New(backend, log)
	convs := store.New(backend, log)

	provider, _ := p.ActiveProvider()
	client := chat.NewClient(provider, log)

	sess := session.NewManager(session.Config{
		AutoSaveEnabled:  p.AutoSaveEnabled(),
		AutoSaveInterval: time.Duration(p.AutoSaveIntervalMin()) * time.Minute,
	})

	chatVM := vm.NewChatViewModel(convs, p, client, log)
	sess.SetAutoSaveCallback(chatVM.Checkpoint)

	return &App{
		Config:  cfg,
		Log:     log,
		Backend: backend,
		Prefs:   p,
		Convs:   convs,
		Chat:    client,
		ChatVM:  chatVM,
		SetVM:   vm.NewSettingsViewModel(p, client, log),
		Session: sess,
	}, nil
}

// Close cancels any in-flight request and releases the backend. Safe to
// call once at shutdown.
func (a *App) Close() error {
	a.Chat.Cancel()
	a.ChatVM.Close()
	a.SetVM.Close()
	a.Prefs.Close()
	a.Convs.Close()
	return a.Backend.Close()
}

// SubscribePreferences exposes the preference stream for UI theming.
func (a *App) SubscribePreferences() (<-chan model.UserPreferences, func()) {
	return a.Prefs.Subscribe()
}

// SubscribeConversations exposes the conversation list stream.
func (a *App) SubscribeConversations() (<-chan []model.Conversation, func()) {
	return a.Convs.Subscribe()
}

func openBackend(cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return kv.NewMemory(), nil
	case "pebble", "":
		dir, err := cfg.DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		backend, err := kv.OpenPebble(dir)
		if err != nil {
			return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// interface guard
var _ vm.ChatService = (*chat.Client)(nil)
