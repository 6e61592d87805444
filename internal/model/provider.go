// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// ProviderType classifies a model provider's API surface.
type ProviderType string

const (
	// ProviderOpenAI is the official OpenAI API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderOpenAICompatible is any server speaking the OpenAI wire
	// protocol (LocalAI, vLLM, Ollama's compat endpoint, proxies).
	ProviderOpenAICompatible ProviderType = "OPENAI_COMPATIBLE"
	// ProviderCustom is a user-defined endpoint.
	ProviderCustom ProviderType = "CUSTOM"
)

// Valid returns true for known provider types.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderOpenAI, ProviderOpenAICompatible, ProviderCustom:
		return true
	}
	return false
}

// DefaultModel returns the model used when a provider of this type has no
// selected model configured.
func (t ProviderType) DefaultModel() string {
	switch t {
	case ProviderOpenAI, ProviderOpenAICompatible:
		return "gpt-3.5-turbo"
	case ProviderCustom:
		return "model1"
	}
	return "gpt-3.5-turbo"
}

// FallbackModels returns the static model list used when live model listing
// fails or the provider is unreachable.
func (t ProviderType) FallbackModels() []string {
	switch t {
	case ProviderOpenAI:
		return []string{"gpt-4o", "gpt-4", "gpt-3.5-turbo"}
	case ProviderOpenAICompatible:
		return []string{"gpt-3.5-turbo", "gpt-4", "llama2"}
	case ProviderCustom:
		return []string{"model1", "model2"}
	}
	return []string{"gpt-3.5-turbo"}
}

// =============================================================================
// MODEL PROVIDER
// =============================================================================

// ModelProvider describes a configured LLM endpoint: where to connect,
// how to authenticate, and which model to use.
type ModelProvider struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          ProviderType `json:"type"`
	BaseURL       string       `json:"baseUrl"`
	APIKey        string       `json:"apiKey"`
	SelectedModel string       `json:"selectedModel"`
	IsDefault     bool         `json:"isDefault"`
	Enabled       bool         `json:"enabled"`
}

// EffectiveModel returns the provider's selected model, falling back to the
// type default when unset.
func (p ModelProvider) EffectiveModel() string {
	if p.SelectedModel != "" {
		return p.SelectedModel
	}
	return p.Type.DefaultModel()
}

// DefaultProviderID is the id of the built-in OpenAI provider. It cannot be
// deleted and is the target when the active provider is removed.
const DefaultProviderID = "openai"

// DefaultProviders returns the built-in provider seed list: the official
// OpenAI endpoint and a disabled LocalAI entry for local experimentation.
func DefaultProviders() []ModelProvider {
	return []ModelProvider{
		{
			ID:            DefaultProviderID,
			Name:          "OpenAI",
			Type:          ProviderOpenAI,
			BaseURL:       "https://api.openai.com/v1",
			APIKey:        "",
			SelectedModel: "gpt-4o",
			IsDefault:     true,
			Enabled:       true,
		},
		{
			ID:            "localai",
			Name:          "LocalAI",
			Type:          ProviderOpenAICompatible,
			BaseURL:       "http://localhost:8080/v1",
			APIKey:        "",
			SelectedModel: "gpt-3.5-turbo",
			IsDefault:     false,
			Enabled:       false,
		},
	}
}

// NewProvider creates a custom provider with a millisecond-timestamp id,
// the way the settings screen mints new entries.
func NewProvider(name string) ModelProvider {
	return ModelProvider{
		ID:      fmt.Sprintf("provider_%d", time.Now().UnixMilli()),
		Name:    name,
		Type:    ProviderOpenAICompatible,
		BaseURL: "",
		Enabled: true,
	}
}

// =============================================================================
// USER PREFERENCES
// =============================================================================

// Theme selects the application color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Valid returns true for known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}

// FontSize selects the relative UI text size.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// Valid returns true for known font sizes.
func (f FontSize) Valid() bool {
	switch f {
	case FontSmall, FontMedium, FontLarge:
		return true
	}
	return false
}

// UserPreferences is the aggregate snapshot of all user settings.
// Individual fields map to dedicated keys in the preference store.
type UserPreferences struct {
	APIKey               string          `json:"apiKey"`
	APIBaseURL           string          `json:"apiBaseUrl"`
	Theme                Theme           `json:"theme"`
	FontSize             FontSize        `json:"fontSize"`
	Language             string          `json:"language"`
	OfflineModeEnabled   bool            `json:"enableOfflineMode"`
	DefaultModelConfig   ModelConfig     `json:"defaultModelConfig"`
	NotificationsEnabled bool            `json:"enableNotifications"`
	SoundEffectsEnabled  bool            `json:"soundEffectsEnabled"`
	AutoSaveEnabled      bool            `json:"enableAutoSave"`
	AutoSaveIntervalMin  int             `json:"autoSaveInterval"`
	MarkdownEnabled      bool            `json:"markdownEnabled"`
	Providers            []ModelProvider `json:"modelProviders"`
	ActiveProviderID     string          `json:"activeProviderId"`
}

// DefaultPreferences returns the out-of-box preference snapshot.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		APIKey:               "",
		APIBaseURL:           "https://api.openai.com/v1",
		Theme:                ThemeSystem,
		FontSize:             FontMedium,
		Language:             "en",
		OfflineModeEnabled:   false,
		DefaultModelConfig:   DefaultModelConfig(),
		NotificationsEnabled: true,
		SoundEffectsEnabled:  true,
		AutoSaveEnabled:      true,
		AutoSaveIntervalMin:  5,
		MarkdownEnabled:      true,
		Providers:            DefaultProviders(),
		ActiveProviderID:     DefaultProviderID,
	}
}

// ActiveProvider returns the provider matching ActiveProviderID, falling back
// to the default provider, then to the first entry. Returns false only when
// the provider list is empty.
func (p UserPreferences) ActiveProvider() (ModelProvider, bool) {
	for _, prov := range p.Providers {
		if prov.ID == p.ActiveProviderID {
			return prov, true
		}
	}
	for _, prov := range p.Providers {
		if prov.IsDefault {
			return prov, true
		}
	}
	if len(p.Providers) > 0 {
		return p.Providers[0], true
	}
	return ModelProvider{}, false
}
