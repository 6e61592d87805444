// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/kv"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/pubsub"
)

// =============================================================================
// PREFERENCE KEYS
// =============================================================================

// Storage keys. These are part of the on-disk format; renaming one orphans
// every existing installation's value for it.
const (
	KeyAPIKey               = "api_key"
	KeyAPIBaseURL           = "api_base_url"
	KeyTheme                = "theme"
	KeyFontSize             = "font_size"
	KeyLanguage             = "language"
	KeyOfflineModeEnabled   = "offline_mode_enabled"
	KeyDefaultModelConfig   = "default_model_config"
	KeyNotificationsEnabled = "notifications_enabled"
	KeySoundEffectsEnabled  = "sound_effects_enabled"
	KeyAutoSaveEnabled      = "auto_save_enabled"
	KeyAutoSaveIntervalMin  = "auto_save_interval"
	KeyMarkdownEnabled      = "markdown_enabled"
	KeyModelProviders       = "model_providers"
	KeyActiveProviderID     = "active_provider_id"
)

// =============================================================================
// STORE
// =============================================================================

// Store provides typed preference access over a key-value backend.
// Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	kv  kv.Store
	log zerolog.Logger
	bus *pubsub.Broadcaster[model.UserPreferences]
}

// New creates a preference store over the given backend.
func New(backend kv.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:  backend,
		log: log.With().Str("component", "prefs").Logger(),
		bus: pubsub.New[model.UserPreferences](),
	}
}

// Subscribe returns a channel receiving the latest preference snapshot
// after every successful write, plus an unsubscribe function.
func (s *Store) Subscribe() (<-chan model.UserPreferences, func()) {
	return s.bus.Subscribe()
}

// Close releases the subscriber channels. The backend is left open; its
// lifetime belongs to the caller.
func (s *Store) Close() {
	s.bus.Close()
}

// Snapshot assembles the full preference state from individual keys.
func (s *Store) Snapshot() model.UserPreferences {
	return model.UserPreferences{
		APIKey:               s.APIKey(),
		APIBaseURL:           s.APIBaseURL(),
		Theme:                s.Theme(),
		FontSize:             s.FontSize(),
		Language:             s.Language(),
		OfflineModeEnabled:   s.OfflineModeEnabled(),
		DefaultModelConfig:   s.DefaultModelConfig(),
		NotificationsEnabled: s.NotificationsEnabled(),
		SoundEffectsEnabled:  s.SoundEffectsEnabled(),
		AutoSaveEnabled:      s.AutoSaveEnabled(),
		AutoSaveIntervalMin:  s.AutoSaveIntervalMin(),
		MarkdownEnabled:      s.MarkdownEnabled(),
		Providers:            s.Providers(),
		ActiveProviderID:     s.ActiveProviderID(),
	}
}

// Write commits every preference field in one pass and notifies observers
// once, after the final key is persisted.
func (s *Store) Write(p model.UserPreferences) error {
	cfg, err := json.Marshal(p.DefaultModelConfig)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyDefaultModelConfig, err)
	}
	providers, err := json.Marshal(p.Providers)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyModelProviders, err)
	}
	entries := []struct {
		key   string
		value string
	}{
		{KeyAPIKey, p.APIKey},
		{KeyAPIBaseURL, p.APIBaseURL},
		{KeyTheme, string(p.Theme)},
		{KeyFontSize, string(p.FontSize)},
		{KeyLanguage, p.Language},
		{KeyOfflineModeEnabled, formatBool(p.OfflineModeEnabled)},
		{KeyDefaultModelConfig, string(cfg)},
		{KeyNotificationsEnabled, formatBool(p.NotificationsEnabled)},
		{KeySoundEffectsEnabled, formatBool(p.SoundEffectsEnabled)},
		{KeyAutoSaveEnabled, formatBool(p.AutoSaveEnabled)},
		{KeyAutoSaveIntervalMin, strconv.Itoa(p.AutoSaveIntervalMin)},
		{KeyMarkdownEnabled, formatBool(p.MarkdownEnabled)},
		{KeyModelProviders, string(providers)},
		{KeyActiveProviderID, p.ActiveProviderID},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if err := s.kv.Set(e.key, []byte(e.value)); err != nil {
			return fmt.Errorf("persist %s: %w", e.key, err)
		}
	}
	s.publish()
	return nil
}

// publish pushes the current snapshot to all subscribers.
// Called after every successful write.
func (s *Store) publish() {
	s.bus.Publish(s.Snapshot())
}

// =============================================================================
// SCALAR PREFERENCES
// =============================================================================

// APIKey returns the stored API key, or "" when unset.
func (s *Store) APIKey() string {
	return s.getString(KeyAPIKey, "")
}

// SetAPIKey persists the API key.
func (s *Store) SetAPIKey(key string) error {
	return s.setString(KeyAPIKey, key)
}

// APIBaseURL returns the API base URL, defaulting to the official
// OpenAI endpoint.
func (s *Store) APIBaseURL() string {
	return s.getString(KeyAPIBaseURL, "https://api.openai.com/v1")
}

// SetAPIBaseURL persists the API base URL.
func (s *Store) SetAPIBaseURL(url string) error {
	return s.setString(KeyAPIBaseURL, url)
}

// Theme returns the stored theme, defaulting to system.
// Unrecognized stored values fall back to the default.
func (s *Store) Theme() model.Theme {
	t := model.Theme(s.getString(KeyTheme, string(model.ThemeSystem)))
	if !t.Valid() {
		s.log.Warn().Str("key", KeyTheme).Str("value", string(t)).Msg("unknown theme, using default")
		return model.ThemeSystem
	}
	return t
}

// SetTheme persists the theme.
func (s *Store) SetTheme(t model.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("invalid theme: %q", t)
	}
	return s.setString(KeyTheme, string(t))
}

// FontSize returns the stored font size, defaulting to medium.
func (s *Store) FontSize() model.FontSize {
	f := model.FontSize(s.getString(KeyFontSize, string(model.FontMedium)))
	if !f.Valid() {
		s.log.Warn().Str("key", KeyFontSize).Str("value", string(f)).Msg("unknown font size, using default")
		return model.FontMedium
	}
	return f
}

// SetFontSize persists the font size.
func (s *Store) SetFontSize(f model.FontSize) error {
	if !f.Valid() {
		return fmt.Errorf("invalid font size: %q", f)
	}
	return s.setString(KeyFontSize, string(f))
}

// Language returns the UI language code, defaulting to "en".
func (s *Store) Language() string {
	return s.getString(KeyLanguage, "en")
}

// SetLanguage persists the UI language code.
func (s *Store) SetLanguage(lang string) error {
	return s.setString(KeyLanguage, lang)
}

// SoundEffectsEnabled reports whether sound effects are on. Default true.
func (s *Store) SoundEffectsEnabled() bool {
	return s.getBool(KeySoundEffectsEnabled, true)
}

// SetSoundEffectsEnabled persists the sound effects toggle.
func (s *Store) SetSoundEffectsEnabled(enabled bool) error {
	return s.setBool(KeySoundEffectsEnabled, enabled)
}

// OfflineModeEnabled reports whether offline mode is on. Default false.
func (s *Store) OfflineModeEnabled() bool {
	return s.getBool(KeyOfflineModeEnabled, false)
}

// SetOfflineModeEnabled persists the offline mode toggle.
func (s *Store) SetOfflineModeEnabled(enabled bool) error {
	return s.setBool(KeyOfflineModeEnabled, enabled)
}

// NotificationsEnabled reports whether notifications are on. Default true.
func (s *Store) NotificationsEnabled() bool {
	return s.getBool(KeyNotificationsEnabled, true)
}

// SetNotificationsEnabled persists the notifications toggle.
func (s *Store) SetNotificationsEnabled(enabled bool) error {
	return s.setBool(KeyNotificationsEnabled, enabled)
}

// AutoSaveEnabled reports whether periodic conversation auto-save is on.
// Default true.
func (s *Store) AutoSaveEnabled() bool {
	return s.getBool(KeyAutoSaveEnabled, true)
}

// SetAutoSaveEnabled persists the auto-save toggle.
func (s *Store) SetAutoSaveEnabled(enabled bool) error {
	return s.setBool(KeyAutoSaveEnabled, enabled)
}

// AutoSaveIntervalMin returns the auto-save interval in minutes.
// Default 5.
func (s *Store) AutoSaveIntervalMin() int {
	return s.getInt(KeyAutoSaveIntervalMin, 5)
}

// SetAutoSaveIntervalMin persists the auto-save interval in minutes.
func (s *Store) SetAutoSaveIntervalMin(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("invalid auto-save interval: %d", minutes)
	}
	return s.setString(KeyAutoSaveIntervalMin, strconv.Itoa(minutes))
}

// MarkdownEnabled reports whether markdown rendering is on. Default true.
func (s *Store) MarkdownEnabled() bool {
	return s.getBool(KeyMarkdownEnabled, true)
}

// SetMarkdownEnabled persists the markdown rendering toggle.
func (s *Store) SetMarkdownEnabled(enabled bool) error {
	return s.setBool(KeyMarkdownEnabled, enabled)
}

// =============================================================================
// STRUCTURED PREFERENCES
// =============================================================================

// DefaultModelConfig returns the default generation parameters for new
// conversations. A missing or corrupt record yields the built-in defaults.
func (s *Store) DefaultModelConfig() model.ModelConfig {
	data, err := s.kv.Get(KeyDefaultModelConfig)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", KeyDefaultModelConfig).Msg("read failed, using default")
		}
		return model.DefaultModelConfig()
	}
	var cfg model.ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.log.Warn().Err(err).Str("key", KeyDefaultModelConfig).Msg("corrupt model config, using default")
		return model.DefaultModelConfig()
	}
	return cfg
}

// SetDefaultModelConfig persists the default generation parameters.
func (s *Store) SetDefaultModelConfig(cfg model.ModelConfig) error {
	return s.setJSON(KeyDefaultModelConfig, cfg)
}

// Providers returns the configured provider list. A missing or corrupt
// record yields the built-in seed providers.
func (s *Store) Providers() []model.ModelProvider {
	data, err := s.kv.Get(KeyModelProviders)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", KeyModelProviders).Msg("read failed, using defaults")
		}
		return model.DefaultProviders()
	}
	var providers []model.ModelProvider
	if err := json.Unmarshal(data, &providers); err != nil {
		s.log.Warn().Err(err).Str("key", KeyModelProviders).Msg("corrupt provider list, using defaults")
		return model.DefaultProviders()
	}
	if len(providers) == 0 {
		return model.DefaultProviders()
	}
	return providers
}

// SetProviders persists the full provider list.
func (s *Store) SetProviders(providers []model.ModelProvider) error {
	return s.setJSON(KeyModelProviders, providers)
}

// ActiveProviderID returns the active provider id, defaulting to the
// built-in OpenAI provider.
func (s *Store) ActiveProviderID() string {
	return s.getString(KeyActiveProviderID, model.DefaultProviderID)
}

// SetActiveProviderID persists the active provider selection.
func (s *Store) SetActiveProviderID(id string) error {
	return s.setString(KeyActiveProviderID, id)
}

// ActiveProvider resolves the active provider from the stored list.
func (s *Store) ActiveProvider() (model.ModelProvider, bool) {
	snapshot := model.UserPreferences{
		Providers:        s.Providers(),
		ActiveProviderID: s.ActiveProviderID(),
	}
	return snapshot.ActiveProvider()
}

// =============================================================================
// PROVIDER MANAGEMENT
// =============================================================================

// UpsertProvider adds or replaces a provider by id and persists the list.
func (s *Store) UpsertProvider(p model.ModelProvider) error {
	providers := s.Providers()
	replaced := false
	for i := range providers {
		if providers[i].ID == p.ID {
			providers[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		providers = append(providers, p)
	}
	return s.SetProviders(providers)
}

// DeleteProvider removes a provider by id. Deleting the default provider is
// a no-op. When the active provider is deleted, selection moves to the
// default provider.
func (s *Store) DeleteProvider(id string) error {
	providers := s.Providers()
	kept := providers[:0]
	removed := false
	for _, p := range providers {
		if p.ID == id {
			if p.IsDefault {
				s.log.Warn().Str("provider", id).Msg("refusing to delete default provider")
				return nil
			}
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return nil
	}
	if err := s.SetProviders(kept); err != nil {
		return err
	}
	if s.ActiveProviderID() == id {
		return s.SetActiveProviderID(model.DefaultProviderID)
	}
	return nil
}

// =============================================================================
// CODEC HELPERS
// =============================================================================

func (s *Store) getString(key, def string) string {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("read failed, using default")
		}
		return def
	}
	return string(data)
}

func (s *Store) setString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(key, []byte(value)); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	s.publish()
	return nil
}

func (s *Store) getBool(key string, def bool) bool {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("read failed, using default")
		}
		return def
	}
	switch string(data) {
	case "true":
		return true
	case "false":
		return false
	}
	s.log.Warn().Str("key", key).Str("value", string(data)).Msg("corrupt bool, using default")
	return def
}

func (s *Store) setBool(key string, value bool) error {
	return s.setString(key, formatBool(value))
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func (s *Store) getInt(key string, def int) int {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("read failed, using default")
		}
		return def
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", string(data)).Msg("corrupt int, using default")
		return def
	}
	return n
}

func (s *Store) setJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	s.publish()
	return nil
}
