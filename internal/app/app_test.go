// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"testing"

	"github.com/pjq/chatcat/internal/config"
	"github.com/pjq/chatcat/internal/logging"
	"github.com/pjq/chatcat/internal/model"
)

func memConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	return cfg
}

func TestNewWiresEverything(t *testing.T) {
	a, err := New(memConfig(), logging.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Prefs == nil || a.Convs == nil || a.Chat == nil || a.ChatVM == nil || a.SetVM == nil || a.Session == nil {
		t.Fatal("component left nil by composition root")
	}

	// the chat client starts configured with the active provider
	if a.Chat.Provider().ID != model.DefaultProviderID {
		t.Errorf("client provider = %q, want default", a.Chat.Provider().ID)
	}
}

func TestPebbleBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "pebble"
	cfg.Storage.DataDir = t.TempDir()

	a, err := New(cfg, logging.Nop())
	if err != nil {
		t.Fatalf("New with pebble: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "etched-stone"
	if _, err := New(cfg, logging.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPreferenceStreamReachesSubscribers(t *testing.T) {
	a, err := New(memConfig(), logging.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ch, cancel := a.SubscribePreferences()
	defer cancel()

	if err := a.Prefs.SetLanguage("zh"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	snap := <-ch
	if snap.Language != "zh" {
		t.Errorf("subscriber saw language %q, want zh", snap.Language)
	}
}

func TestConversationStreamReachesSubscribers(t *testing.T) {
	a, err := New(memConfig(), logging.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ch, cancel := a.SubscribeConversations()
	defer cancel()

	conv := model.NewConversation("stream check")
	if err := a.Convs.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	list := <-ch
	if len(list) != 1 || list[0].Title != "stream check" {
		t.Errorf("subscriber saw %d conversations, want the saved one", len(list))
	}
}
