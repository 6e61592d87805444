// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/prefs"
	"github.com/pjq/chatcat/internal/pubsub"
)

// =============================================================================
// SETTINGS UI STATE
// =============================================================================

// SettingsUIState is the snapshot the settings screen renders from.
type SettingsUIState struct {
	Preferences     model.UserPreferences
	ActiveProvider  model.ModelProvider
	AvailableModels []string
	IsAPIAvailable  bool
	IsLoading       bool
	Error           string

	// Edit buffer. Editing holds a draft provider that is not written
	// through until SaveProvider.
	IsEditing bool
	Editing   model.ModelProvider
}

// =============================================================================
// SETTINGS VIEW-MODEL
// =============================================================================

// SettingsViewModel orchestrates preference edits and provider management.
// Every credential or URL change reconfigures the chat client and re-checks
// availability so the UI indicator stays honest.
type SettingsViewModel struct {
	mu        sync.Mutex
	loading   bool
	available bool
	lastError string
	models    []string
	editing   *model.ModelProvider

	prefs *prefs.Store
	chat  ChatService
	log   zerolog.Logger
	bus   *pubsub.Broadcaster[SettingsUIState]
}

// NewSettingsViewModel wires a settings view-model against its collaborators.
func NewSettingsViewModel(p *prefs.Store, svc ChatService, log zerolog.Logger) *SettingsViewModel {
	return &SettingsViewModel{
		prefs: p,
		chat:  svc,
		log:   log.With().Str("component", "settings_vm").Logger(),
		bus:   pubsub.New[SettingsUIState](),
	}
}

// Subscribe returns a channel of UI state snapshots and a cancel func.
func (vm *SettingsViewModel) Subscribe() (<-chan SettingsUIState, func()) {
	return vm.bus.Subscribe()
}

// Close releases the state broadcaster.
func (vm *SettingsViewModel) Close() {
	vm.bus.Close()
}

// State assembles the current snapshot.
func (vm *SettingsViewModel) State() SettingsUIState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stateLocked()
}

func (vm *SettingsViewModel) stateLocked() SettingsUIState {
	st := SettingsUIState{
		Preferences:     vm.prefs.Snapshot(),
		AvailableModels: append([]string(nil), vm.models...),
		IsAPIAvailable:  vm.available,
		IsLoading:       vm.loading,
		Error:           vm.lastError,
	}
	if prov, ok := st.Preferences.ActiveProvider(); ok {
		st.ActiveProvider = prov
	}
	if vm.editing != nil {
		st.IsEditing = true
		st.Editing = *vm.editing
	}
	return st
}

func (vm *SettingsViewModel) publish() {
	vm.mu.Lock()
	st := vm.stateLocked()
	vm.mu.Unlock()
	vm.bus.Publish(st)
}

// =============================================================================
// FIELD SETTERS
// =============================================================================

// UpdateAPIKey stores a new global API key and re-checks availability.
func (vm *SettingsViewModel) UpdateAPIKey(ctx context.Context, key string) error {
	if err := vm.prefs.SetAPIKey(key); err != nil {
		return err
	}
	vm.reconfigure(ctx)
	return nil
}

// UpdateAPIBaseURL stores a new global base URL and re-checks availability.
func (vm *SettingsViewModel) UpdateAPIBaseURL(ctx context.Context, url string) error {
	if err := vm.prefs.SetAPIBaseURL(url); err != nil {
		return err
	}
	vm.reconfigure(ctx)
	return nil
}

// UpdateTheme stores the theme choice.
func (vm *SettingsViewModel) UpdateTheme(t model.Theme) error {
	if err := vm.prefs.SetTheme(t); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateFontSize stores the font size choice.
func (vm *SettingsViewModel) UpdateFontSize(f model.FontSize) error {
	if err := vm.prefs.SetFontSize(f); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateLanguage stores the UI language.
func (vm *SettingsViewModel) UpdateLanguage(lang string) error {
	if err := vm.prefs.SetLanguage(lang); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateSoundEffectsEnabled toggles sound effects.
func (vm *SettingsViewModel) UpdateSoundEffectsEnabled(enabled bool) error {
	if err := vm.prefs.SetSoundEffectsEnabled(enabled); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateAutoSaveEnabled toggles periodic conversation auto-save.
func (vm *SettingsViewModel) UpdateAutoSaveEnabled(enabled bool) error {
	if err := vm.prefs.SetAutoSaveEnabled(enabled); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateMarkdownEnabled toggles markdown rendering of assistant messages.
func (vm *SettingsViewModel) UpdateMarkdownEnabled(enabled bool) error {
	if err := vm.prefs.SetMarkdownEnabled(enabled); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateDefaultModelConfig replaces the default generation parameters used
// to seed new conversations.
func (vm *SettingsViewModel) UpdateDefaultModelConfig(cfg model.ModelConfig) error {
	if err := vm.prefs.SetDefaultModelConfig(cfg); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// UpdateStreamMode toggles streaming in the default model config.
func (vm *SettingsViewModel) UpdateStreamMode(stream bool) error {
	cfg := vm.prefs.DefaultModelConfig()
	cfg.Stream = stream
	return vm.UpdateDefaultModelConfig(cfg)
}

// UpdateModel sets the active provider's selected model.
func (vm *SettingsViewModel) UpdateModel(name string) error {
	prov, ok := vm.prefs.ActiveProvider()
	if !ok {
		return fmt.Errorf("vm: no active provider")
	}
	prov.SelectedModel = name
	if err := vm.prefs.UpsertProvider(prov); err != nil {
		return err
	}
	vm.chat.Configure(effectiveProvider(vm.prefs))
	vm.publish()
	return nil
}

// =============================================================================
// PROVIDER MANAGEMENT
// =============================================================================

// SetActiveProvider switches the active provider. A provider without a
// selected model gets its type default before activation. The provider's
// credentials become the global API settings and the model list is
// refreshed against the new endpoint.
func (vm *SettingsViewModel) SetActiveProvider(ctx context.Context, id string) error {
	var target *model.ModelProvider
	for _, p := range vm.prefs.Providers() {
		if p.ID == id {
			p := p
			target = &p
			break
		}
	}
	if target == nil {
		return fmt.Errorf("vm: unknown provider %q", id)
	}

	if target.SelectedModel == "" {
		target.SelectedModel = target.Type.DefaultModel()
		if err := vm.prefs.UpsertProvider(*target); err != nil {
			return err
		}
	}
	if err := vm.prefs.SetActiveProviderID(id); err != nil {
		return err
	}
	if err := vm.propagateCredentials(*target); err != nil {
		return err
	}

	vm.mu.Lock()
	vm.models = nil // stale for the new endpoint
	vm.mu.Unlock()

	vm.reconfigure(ctx)
	return vm.LoadAvailableModels(ctx)
}

// StartEditingProvider opens a provider in the edit buffer.
func (vm *SettingsViewModel) StartEditingProvider(p model.ModelProvider) {
	vm.mu.Lock()
	vm.editing = &p
	vm.mu.Unlock()
	vm.publish()
}

// CancelEditingProvider drops the edit buffer without saving.
func (vm *SettingsViewModel) CancelEditingProvider() {
	vm.mu.Lock()
	vm.editing = nil
	vm.mu.Unlock()
	vm.publish()
}

// CreateNewProvider opens a fresh OpenAI-compatible draft in the edit
// buffer. Nothing is persisted until SaveProvider.
func (vm *SettingsViewModel) CreateNewProvider() model.ModelProvider {
	draft := model.NewProvider("New Provider")
	vm.mu.Lock()
	vm.editing = &draft
	vm.mu.Unlock()
	vm.publish()
	return draft
}

// SaveProvider commits a provider edit. An existing provider keeps its
// previously selected model when the edit leaves the field blank; a new
// provider with no model gets its type default. Saving the active provider
// also pushes its credentials into the global API settings.
func (vm *SettingsViewModel) SaveProvider(ctx context.Context, p model.ModelProvider) error {
	if p.SelectedModel == "" {
		prior, exists := vm.findProvider(p.ID)
		if exists && prior.SelectedModel != "" {
			p.SelectedModel = prior.SelectedModel
		} else {
			p.SelectedModel = p.Type.DefaultModel()
		}
	}
	if err := vm.prefs.UpsertProvider(p); err != nil {
		return err
	}

	vm.mu.Lock()
	vm.editing = nil
	vm.mu.Unlock()

	if vm.prefs.ActiveProviderID() == p.ID {
		if err := vm.propagateCredentials(p); err != nil {
			return err
		}
		vm.reconfigure(ctx)
		return nil
	}
	vm.publish()
	return nil
}

// DeleteProvider removes a provider. The built-in default cannot be
// deleted; removing the active provider reassigns the default and makes
// its credentials current.
func (vm *SettingsViewModel) DeleteProvider(ctx context.Context, id string) error {
	wasActive := vm.prefs.ActiveProviderID() == id
	if err := vm.prefs.DeleteProvider(id); err != nil {
		return err
	}
	if wasActive {
		if prov, ok := vm.prefs.ActiveProvider(); ok {
			if err := vm.propagateCredentials(prov); err != nil {
				return err
			}
		}
		vm.reconfigure(ctx)
		return nil
	}
	vm.publish()
	return nil
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// LoadAvailableModels fetches the model list from the active provider.
// On failure the per-type fallback list is kept so the picker is never
// empty, and the error is recorded in state rather than hidden.
func (vm *SettingsViewModel) LoadAvailableModels(ctx context.Context) error {
	vm.mu.Lock()
	vm.loading = true
	vm.lastError = ""
	vm.mu.Unlock()
	vm.publish()

	vm.chat.Configure(effectiveProvider(vm.prefs))
	models, err := vm.chat.ListModels(ctx)

	vm.mu.Lock()
	vm.loading = false
	vm.models = models
	if err != nil {
		vm.lastError = err.Error()
		vm.log.Warn().Err(err).Msg("model list fetch failed, using fallback")
	}
	vm.mu.Unlock()
	vm.publish()
	return nil
}

// CheckAvailability probes the active provider with a cheap read-only call.
func (vm *SettingsViewModel) CheckAvailability(ctx context.Context) bool {
	ok := vm.chat.IsAvailable(ctx)
	vm.mu.Lock()
	vm.available = ok
	vm.mu.Unlock()
	vm.publish()
	return ok
}

// =============================================================================
// HELPERS
// =============================================================================

// propagateCredentials writes a provider's endpoint settings into the
// global API fields the chat client consumes.
func (vm *SettingsViewModel) propagateCredentials(p model.ModelProvider) error {
	if err := vm.prefs.SetAPIKey(p.APIKey); err != nil {
		return err
	}
	return vm.prefs.SetAPIBaseURL(p.BaseURL)
}

// reconfigure rebuilds the chat client from current preferences and
// re-derives availability.
func (vm *SettingsViewModel) reconfigure(ctx context.Context) {
	vm.chat.Configure(effectiveProvider(vm.prefs))
	vm.CheckAvailability(ctx)
}

func (vm *SettingsViewModel) findProvider(id string) (model.ModelProvider, bool) {
	for _, p := range vm.prefs.Providers() {
		if p.ID == id {
			return p, true
		}
	}
	return model.ModelProvider{}, false
}
