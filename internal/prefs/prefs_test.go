// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"reflect"
	"testing"
	"time"

	"github.com/pjq/chatcat/internal/kv"
	"github.com/pjq/chatcat/internal/logging"
	"github.com/pjq/chatcat/internal/model"
)

func newStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	t.Cleanup(func() { backend.Close() })
	s := New(backend, logging.Nop())
	t.Cleanup(s.Close)
	return s, backend
}

func TestDefaultsWhenEmpty(t *testing.T) {
	s, _ := newStore(t)

	if got := s.APIKey(); got != "" {
		t.Errorf("APIKey = %q, want empty", got)
	}
	if got := s.APIBaseURL(); got != "https://api.openai.com/v1" {
		t.Errorf("APIBaseURL = %q", got)
	}
	if got := s.Theme(); got != model.ThemeSystem {
		t.Errorf("Theme = %q, want system", got)
	}
	if got := s.FontSize(); got != model.FontMedium {
		t.Errorf("FontSize = %q, want medium", got)
	}
	if !s.SoundEffectsEnabled() || !s.MarkdownEnabled() {
		t.Error("sound effects and markdown should default enabled")
	}
	if s.OfflineModeEnabled() {
		t.Error("offline mode should default disabled")
	}
	if !s.NotificationsEnabled() || !s.AutoSaveEnabled() {
		t.Error("notifications and auto-save should default enabled")
	}
	if got := s.AutoSaveIntervalMin(); got != 5 {
		t.Errorf("AutoSaveIntervalMin = %d, want 5", got)
	}
	if got := s.ActiveProviderID(); got != model.DefaultProviderID {
		t.Errorf("ActiveProviderID = %q, want %q", got, model.DefaultProviderID)
	}
	if got := s.DefaultModelConfig(); got != model.DefaultModelConfig() {
		t.Errorf("DefaultModelConfig = %+v", got)
	}
	if got := s.Providers(); len(got) != 2 {
		t.Errorf("Providers should seed defaults, got %d entries", len(got))
	}
}

func TestStringRoundTrip(t *testing.T) {
	s, _ := newStore(t)

	if err := s.SetAPIKey("sk-test-123"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if got := s.APIKey(); got != "sk-test-123" {
		t.Errorf("APIKey = %q", got)
	}

	if err := s.SetAPIBaseURL("http://localhost:8080/v1"); err != nil {
		t.Fatal(err)
	}
	if got := s.APIBaseURL(); got != "http://localhost:8080/v1" {
		t.Errorf("APIBaseURL = %q", got)
	}
}

func TestBoolRoundTrip(t *testing.T) {
	s, _ := newStore(t)

	if err := s.SetMarkdownEnabled(false); err != nil {
		t.Fatal(err)
	}
	if s.MarkdownEnabled() {
		t.Error("MarkdownEnabled should be false after set")
	}
	if err := s.SetSoundEffectsEnabled(false); err != nil {
		t.Fatal(err)
	}
	if s.SoundEffectsEnabled() {
		t.Error("SoundEffectsEnabled should be false after set")
	}
	if err := s.SetOfflineModeEnabled(true); err != nil {
		t.Fatal(err)
	}
	if !s.OfflineModeEnabled() {
		t.Error("OfflineModeEnabled should be true after set")
	}
	if err := s.SetNotificationsEnabled(false); err != nil {
		t.Fatal(err)
	}
	if s.NotificationsEnabled() {
		t.Error("NotificationsEnabled should be false after set")
	}
	if err := s.SetAutoSaveEnabled(false); err != nil {
		t.Fatal(err)
	}
	if s.AutoSaveEnabled() {
		t.Error("AutoSaveEnabled should be false after set")
	}
}

func TestAutoSaveInterval(t *testing.T) {
	s, backend := newStore(t)

	if err := s.SetAutoSaveIntervalMin(15); err != nil {
		t.Fatalf("SetAutoSaveIntervalMin failed: %v", err)
	}
	if got := s.AutoSaveIntervalMin(); got != 15 {
		t.Errorf("AutoSaveIntervalMin = %d, want 15", got)
	}
	if err := s.SetAutoSaveIntervalMin(0); err == nil {
		t.Error("SetAutoSaveIntervalMin should reject non-positive intervals")
	}

	// A corrupt stored value falls back to the default.
	backend.Set(KeyAutoSaveIntervalMin, []byte("soon"))
	if got := s.AutoSaveIntervalMin(); got != 5 {
		t.Errorf("corrupt interval should yield default 5, got %d", got)
	}
}

func TestCorruptValuesFallBackToDefaults(t *testing.T) {
	s, backend := newStore(t)

	// Corrupt records must never surface as errors to readers.
	backend.Set(KeyMarkdownEnabled, []byte("not-a-bool"))
	backend.Set(KeyDefaultModelConfig, []byte("{broken json"))
	backend.Set(KeyModelProviders, []byte("[{]"))
	backend.Set(KeyTheme, []byte("neon"))

	if !s.MarkdownEnabled() {
		t.Error("corrupt bool should yield default true")
	}
	if got := s.DefaultModelConfig(); got != model.DefaultModelConfig() {
		t.Errorf("corrupt config should yield default, got %+v", got)
	}
	if got := s.Providers(); len(got) != 2 || got[0].ID != model.DefaultProviderID {
		t.Errorf("corrupt providers should yield defaults, got %+v", got)
	}
	if got := s.Theme(); got != model.ThemeSystem {
		t.Errorf("unknown theme should yield system, got %q", got)
	}
}

func TestSetThemeRejectsInvalid(t *testing.T) {
	s, _ := newStore(t)
	if err := s.SetTheme(model.Theme("neon")); err == nil {
		t.Error("SetTheme should reject unknown themes")
	}
	if err := s.SetFontSize(model.FontSize("huge")); err == nil {
		t.Error("SetFontSize should reject unknown sizes")
	}
}

func TestModelConfigRoundTrip(t *testing.T) {
	s, _ := newStore(t)

	cfg := model.ModelConfig{
		Model:       "gpt-4",
		Temperature: 0.2,
		MaxTokens:   500,
		TopP:        0.9,
		Stream:      false,
	}
	if err := s.SetDefaultModelConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if got := s.DefaultModelConfig(); got != cfg {
		t.Errorf("DefaultModelConfig = %+v, want %+v", got, cfg)
	}
}

func TestUpsertProvider(t *testing.T) {
	s, _ := newStore(t)

	p := model.NewProvider("My Server")
	p.BaseURL = "http://example.com/v1"
	if err := s.UpsertProvider(p); err != nil {
		t.Fatal(err)
	}
	providers := s.Providers()
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers after upsert, got %d", len(providers))
	}

	p.Name = "Renamed"
	if err := s.UpsertProvider(p); err != nil {
		t.Fatal(err)
	}
	providers = s.Providers()
	if len(providers) != 3 {
		t.Fatalf("upsert of existing id should not grow list, got %d", len(providers))
	}
	found := false
	for _, got := range providers {
		if got.ID == p.ID {
			found = true
			if got.Name != "Renamed" {
				t.Errorf("Name = %q, want Renamed", got.Name)
			}
		}
	}
	if !found {
		t.Error("upserted provider missing from list")
	}
}

func TestDeleteProvider(t *testing.T) {
	s, _ := newStore(t)

	p := model.NewProvider("Removable")
	if err := s.UpsertProvider(p); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActiveProviderID(p.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProvider(p.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.Providers()) != 2 {
		t.Errorf("provider should be removed, have %d", len(s.Providers()))
	}
	// Active selection moves back to the default provider.
	if got := s.ActiveProviderID(); got != model.DefaultProviderID {
		t.Errorf("ActiveProviderID = %q, want %q", got, model.DefaultProviderID)
	}
}

func TestDeleteDefaultProviderIsNoOp(t *testing.T) {
	s, _ := newStore(t)

	if err := s.DeleteProvider(model.DefaultProviderID); err != nil {
		t.Fatalf("deleting default should be a silent no-op, got %v", err)
	}
	providers := s.Providers()
	if len(providers) != 2 {
		t.Errorf("default provider must survive deletion, have %d providers", len(providers))
	}
}

func TestSubscribeReceivesSnapshotAfterWrite(t *testing.T) {
	s, _ := newStore(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.SetAPIKey("sk-new"); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-ch:
		if snap.APIKey != "sk-new" {
			t.Errorf("snapshot APIKey = %q, want sk-new", snap.APIKey)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for preference snapshot")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	s, _ := newStore(t)

	want := model.UserPreferences{
		APIKey:               "sk-roundtrip",
		APIBaseURL:           "http://localhost:1234/v1",
		Theme:                model.ThemeDark,
		FontSize:             model.FontLarge,
		Language:             "zh",
		OfflineModeEnabled:   true,
		NotificationsEnabled: false,
		SoundEffectsEnabled:  false,
		AutoSaveEnabled:      false,
		AutoSaveIntervalMin:  10,
		MarkdownEnabled:      false,
		DefaultModelConfig: model.ModelConfig{
			Model:       "gpt-4",
			Temperature: 0.2,
			MaxTokens:   512,
			TopP:        0.9,
			Stream:      false,
		},
		Providers: []model.ModelProvider{
			{
				ID:            "p1",
				Name:          "Corp",
				Type:          model.ProviderOpenAICompatible,
				BaseURL:       "http://llm.corp.example/v1",
				APIKey:        "sk-corp",
				SelectedModel: "llama2",
				Enabled:       true,
			},
		},
		ActiveProviderID: "p1",
	}

	if err := s.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := s.Snapshot()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestWritePublishesOnce(t *testing.T) {
	s, _ := newStore(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	prefs := model.DefaultPreferences()
	prefs.Language = "fr"
	if err := s.Write(prefs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	snap := <-ch
	if snap.Language != "fr" {
		t.Errorf("subscriber saw language %q, want fr", snap.Language)
	}
	// No further snapshots: the bulk write notifies once, not per key.
	select {
	case extra := <-ch:
		t.Errorf("unexpected second snapshot: %+v", extra)
	default:
	}
}

func TestSnapshotAggregatesAllKeys(t *testing.T) {
	s, _ := newStore(t)

	if err := s.SetAPIKey("sk-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTheme(model.ThemeDark); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLanguage("zh"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.APIKey != "sk-1" || snap.Theme != model.ThemeDark || snap.Language != "zh" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Providers) != 2 {
		t.Errorf("snapshot Providers = %d, want seeded defaults", len(snap.Providers))
	}
}
