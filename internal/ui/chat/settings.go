// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for the ChatCat TUI.
//
// This file implements the settings screen: preference rows, provider
// management, and the provider edit form. All writes go through the
// settings view-model; the pane only tracks cursor and edit positions.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/ui/styles"
	"github.com/pjq/chatcat/internal/util"
	"github.com/pjq/chatcat/internal/vm"
)

// =============================================================================
// SETTINGS ROWS
// =============================================================================

// Preference rows in display order. Provider rows follow these.
const (
	rowTheme = iota
	rowFontSize
	rowLanguage
	rowMarkdown
	rowSound
	rowAutoSave
	rowStreaming
	rowModel
	rowAPIKey
	rowAPIBaseURL
	rowCount // first provider row
)

// provider form fields
const (
	formName = iota
	formBaseURL
	formAPIKey
	formModel
	formFieldCount
)

// =============================================================================
// SETTINGS PANE
// =============================================================================

// settingsPane holds the cursor and edit state for the settings screen.
// The rendered values always come from the latest view-model snapshot.
type settingsPane struct {
	theme *styles.Theme
	state vm.SettingsUIState

	cursor int

	// Inline text edit for language, API key, and base URL rows
	editingRow bool
	rowInput   textinput.Model

	// Provider edit form
	formActive bool
	formField  int
	formInputs [formFieldCount]textinput.Model
}

func newSettingsPane(theme *styles.Theme) settingsPane {
	p := settingsPane{theme: theme}
	p.rowInput = textinput.New()
	p.rowInput.CharLimit = 0
	for i := range p.formInputs {
		p.formInputs[i] = textinput.New()
		p.formInputs[i].CharLimit = 0
	}
	return p
}

// sync replaces the snapshot the pane renders from.
func (p *settingsPane) sync(state vm.SettingsUIState) {
	p.state = state
	if state.IsEditing && !p.formActive {
		p.openForm(state.Editing)
	}
	if !state.IsEditing {
		p.formActive = false
	}
}

// rowTotal is the number of navigable rows including providers and the
// trailing "add provider" row.
func (p *settingsPane) rowTotal() int {
	return rowCount + len(p.state.Preferences.Providers) + 1
}

// providerAt maps a row index to a provider, if the row is a provider row.
func (p *settingsPane) providerAt(row int) (model.ModelProvider, bool) {
	idx := row - rowCount
	providers := p.state.Preferences.Providers
	if idx < 0 || idx >= len(providers) {
		return model.ModelProvider{}, false
	}
	return providers[idx], true
}

// openForm loads a provider draft into the form inputs.
func (p *settingsPane) openForm(draft model.ModelProvider) {
	p.formActive = true
	p.formField = formName
	p.formInputs[formName].SetValue(draft.Name)
	p.formInputs[formBaseURL].SetValue(draft.BaseURL)
	p.formInputs[formAPIKey].SetValue(draft.APIKey)
	p.formInputs[formModel].SetValue(draft.SelectedModel)
	for i := range p.formInputs {
		p.formInputs[i].Blur()
	}
	p.formInputs[formName].Focus()
}

// formDraft rebuilds the provider draft from the form inputs.
func (p *settingsPane) formDraft() model.ModelProvider {
	draft := p.state.Editing
	draft.Name = strings.TrimSpace(p.formInputs[formName].Value())
	draft.BaseURL = strings.TrimSpace(p.formInputs[formBaseURL].Value())
	draft.APIKey = strings.TrimSpace(p.formInputs[formAPIKey].Value())
	draft.SelectedModel = strings.TrimSpace(p.formInputs[formModel].Value())
	return draft
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.settings
	ctx := context.Background()

	if p.formActive {
		return m.handleFormKey(msg)
	}

	if p.editingRow {
		return m.handleRowEditKey(msg)
	}

	switch msg.String() {
	case "ctrl+s", "esc":
		m.screen = screenChat
		return m, nil

	case "up":
		if p.cursor > 0 {
			p.cursor--
		}
		return m, nil

	case "down":
		if p.cursor < p.rowTotal()-1 {
			p.cursor++
		}
		return m, nil

	case "left", "right":
		return m.cycleRow(msg.String() == "right")

	case "enter":
		return m.activateRow()

	case "e":
		if prov, ok := p.providerAt(p.cursor); ok {
			m.app.SetVM.StartEditingProvider(prov)
			return m, nil
		}

	case "n":
		m.app.SetVM.CreateNewProvider()
		return m, nil

	case "d":
		if prov, ok := p.providerAt(p.cursor); ok {
			if err := m.app.SetVM.DeleteProvider(ctx, prov.ID); err != nil {
				m.statusMsg = styles.StatusIndicators.Error + " " + err.Error()
				return m, clearStatusCmd(statusDisplayTime)
			}
			if p.cursor >= p.rowTotal() {
				p.cursor = p.rowTotal() - 1
			}
		}
		return m, nil

	case "r":
		return m, loadModelsCmd(ctx, m.app.SetVM)
	}

	return m, nil
}

// cycleRow handles left/right on rows with enumerable values.
func (m Model) cycleRow(forward bool) (tea.Model, tea.Cmd) {
	p := &m.settings
	prefs := p.state.Preferences

	switch p.cursor {
	case rowTheme:
		themes := []model.Theme{model.ThemeSystem, model.ThemeLight, model.ThemeDark}
		next := cycleChoice(themes, prefs.Theme, forward)
		if err := m.app.SetVM.UpdateTheme(next); err == nil {
			m.applyTheme()
			m.refreshTranscript()
		}

	case rowFontSize:
		sizes := []model.FontSize{model.FontSmall, model.FontMedium, model.FontLarge}
		_ = m.app.SetVM.UpdateFontSize(cycleChoice(sizes, prefs.FontSize, forward))

	case rowMarkdown:
		_ = m.app.SetVM.UpdateMarkdownEnabled(!prefs.MarkdownEnabled)
		m.refreshTranscript()

	case rowSound:
		_ = m.app.SetVM.UpdateSoundEffectsEnabled(!prefs.SoundEffectsEnabled)

	case rowAutoSave:
		_ = m.app.SetVM.UpdateAutoSaveEnabled(!prefs.AutoSaveEnabled)

	case rowStreaming:
		_ = m.app.SetVM.UpdateStreamMode(!prefs.DefaultModelConfig.Stream)

	case rowModel:
		models := p.state.AvailableModels
		if len(models) == 0 {
			return m, nil
		}
		_ = m.app.SetVM.UpdateModel(cycleChoice(models, p.state.ActiveProvider.SelectedModel, forward))
	}

	return m, nil
}

// activateRow handles enter on the selected row.
func (m Model) activateRow() (tea.Model, tea.Cmd) {
	p := &m.settings
	ctx := context.Background()

	switch p.cursor {
	case rowLanguage:
		p.startRowEdit(p.state.Preferences.Language)
		return m, textinput.Blink

	case rowAPIKey:
		p.startRowEdit(p.state.Preferences.APIKey)
		return m, textinput.Blink

	case rowAPIBaseURL:
		p.startRowEdit(p.state.Preferences.APIBaseURL)
		return m, textinput.Blink

	case rowMarkdown, rowSound, rowAutoSave, rowStreaming, rowTheme, rowFontSize, rowModel:
		return m.cycleRow(true)
	}

	// Provider rows: enter activates. The trailing row adds a provider.
	if prov, ok := p.providerAt(p.cursor); ok {
		return m, switchProviderCmd(ctx, m.app.SetVM, prov.ID)
	}
	if p.cursor == p.rowTotal()-1 {
		m.app.SetVM.CreateNewProvider()
	}
	return m, nil
}

func (p *settingsPane) startRowEdit(current string) {
	p.editingRow = true
	p.rowInput.SetValue(current)
	p.rowInput.CursorEnd()
	p.rowInput.Focus()
}

// handleRowEditKey handles inline editing of a single text row.
func (m Model) handleRowEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.settings
	ctx := context.Background()

	switch msg.String() {
	case "esc":
		p.editingRow = false
		return m, nil

	case "enter":
		value := strings.TrimSpace(p.rowInput.Value())
		p.editingRow = false
		var err error
		switch p.cursor {
		case rowLanguage:
			err = m.app.SetVM.UpdateLanguage(value)
		case rowAPIKey:
			err = m.app.SetVM.UpdateAPIKey(ctx, value)
		case rowAPIBaseURL:
			err = m.app.SetVM.UpdateAPIBaseURL(ctx, value)
		}
		if err != nil {
			m.statusMsg = styles.StatusIndicators.Error + " " + err.Error()
			return m, clearStatusCmd(statusDisplayTime)
		}
		return m, nil
	}

	var cmd tea.Cmd
	p.rowInput, cmd = p.rowInput.Update(msg)
	return m, cmd
}

// handleFormKey handles the provider edit form.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.settings
	ctx := context.Background()

	switch msg.String() {
	case "esc":
		m.app.SetVM.CancelEditingProvider()
		p.formActive = false
		return m, nil

	case "tab", "down":
		p.moveFormField(1)
		return m, textinput.Blink

	case "shift+tab", "up":
		p.moveFormField(-1)
		return m, textinput.Blink

	case "enter":
		if p.formField < formFieldCount-1 {
			p.moveFormField(1)
			return m, textinput.Blink
		}
		draft := p.formDraft()
		if err := m.app.SetVM.SaveProvider(ctx, draft); err != nil {
			m.statusMsg = styles.StatusIndicators.Error + " " + err.Error()
			return m, clearStatusCmd(statusDisplayTime)
		}
		p.formActive = false
		m.statusMsg = styles.StatusIndicators.Success + " provider saved"
		return m, clearStatusCmd(statusDisplayTime)
	}

	var cmd tea.Cmd
	p.formInputs[p.formField], cmd = p.formInputs[p.formField].Update(msg)
	return m, cmd
}

func (p *settingsPane) moveFormField(delta int) {
	p.formInputs[p.formField].Blur()
	p.formField += delta
	if p.formField < 0 {
		p.formField = formFieldCount - 1
	}
	if p.formField >= formFieldCount {
		p.formField = 0
	}
	p.formInputs[p.formField].Focus()
}

// cycleChoice advances through a slice of choices, wrapping at the ends.
// An unknown current value lands on the first choice.
func cycleChoice[T comparable](choices []T, current T, forward bool) T {
	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(choices)
	} else {
		idx = (idx - 1 + len(choices)) % len(choices)
	}
	return choices[idx]
}

// =============================================================================
// SETTINGS VIEW
// =============================================================================

// viewSettings renders the settings screen.
func (m Model) viewSettings() string {
	p := m.settings
	t := m.theme
	state := p.state
	prefs := state.Preferences

	var b strings.Builder
	b.WriteString(t.SettingsTitle.Render("Settings"))
	b.WriteString("\n")

	if p.formActive {
		return t.SettingsBox.Render(b.String() + m.viewProviderForm())
	}

	availability := t.StatusBad.Render(styles.StatusIndicators.Error + " unavailable")
	if state.IsAPIAvailable {
		availability = t.StatusOK.Render(styles.StatusIndicators.Success + " available")
	}
	b.WriteString(t.FieldLabel.Render("API status") + availability + "\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Theme", string(prefs.Theme)},
		{"Font size", string(prefs.FontSize)},
		{"Language", prefs.Language},
		{"Markdown", onOff(prefs.MarkdownEnabled)},
		{"Sound effects", onOff(prefs.SoundEffectsEnabled)},
		{"Auto-save", onOff(prefs.AutoSaveEnabled) +
			"  (every " + util.IntToString(prefs.AutoSaveIntervalMin) + "m)"},
		{"Streaming", onOff(prefs.DefaultModelConfig.Stream) +
			"  (temp " + util.FloatToString(prefs.DefaultModelConfig.Temperature) + ")"},
		{"Model", modelValue(state)},
		{"API key", maskSecret(prefs.APIKey)},
		{"API base URL", prefs.APIBaseURL},
	}

	for i, row := range rows {
		value := row.value
		if p.editingRow && p.cursor == i {
			value = p.rowInput.View()
		}
		line := t.FieldLabel.Render(row.label) + t.FieldValue.Render(value)
		if p.cursor == i && !p.editingRow {
			line = t.FieldSelected.Render(">") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + t.SettingsTitle.Render("Providers") + "\n")
	for i, prov := range prefs.Providers {
		row := rowCount + i
		marker := "  "
		if p.cursor == row {
			marker = t.FieldSelected.Render(">") + " "
		}
		name := prov.Name
		if prov.ID == prefs.ActiveProviderID {
			name = t.ProviderActive.Render(name + " (active)")
		} else if !prov.Enabled {
			name = t.ProviderDisabled.Render(name)
		} else {
			name = t.FieldValue.Render(name)
		}
		meta := t.ConvMeta.Render(fmt.Sprintf("  %s  %s", prov.Type, prov.EffectiveModel()))
		b.WriteString(marker + name + meta + "\n")
	}

	addRow := rowCount + len(prefs.Providers)
	marker := "  "
	if p.cursor == addRow {
		marker = t.FieldSelected.Render(">") + " "
	}
	b.WriteString(marker + t.ConvMeta.Render("+ add provider") + "\n")

	if state.Error != "" {
		b.WriteString("\n" + t.ErrorMessage.Render(styles.StatusIndicators.Warning+" "+state.Error) + "\n")
	}

	b.WriteString("\n" + t.ShortcutDesc.Render(
		"enter select/edit  |  left/right change  |  n new  |  e edit  |  d delete  |  r reload models  |  esc back"))

	return t.SettingsBox.Render(b.String())
}

// viewProviderForm renders the provider edit form.
func (m Model) viewProviderForm() string {
	p := m.settings
	t := m.theme

	labels := [formFieldCount]string{"Name", "Base URL", "API key", "Model"}
	var b strings.Builder
	b.WriteString(t.HeaderSubtitle.Render("Edit provider") + "\n\n")
	for i := 0; i < formFieldCount; i++ {
		label := t.FieldLabel.Render(labels[i])
		if i == p.formField {
			b.WriteString(t.FieldSelected.Render(">") + " " + label + p.formInputs[i].View() + "\n")
		} else {
			b.WriteString("  " + label + t.FieldValue.Render(p.formInputs[i].Value()) + "\n")
		}
	}
	b.WriteString("\n" + t.ShortcutDesc.Render("tab next field  |  enter save  |  esc cancel"))
	return b.String()
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

func modelValue(state vm.SettingsUIState) string {
	name := state.ActiveProvider.EffectiveModel()
	if len(state.AvailableModels) > 0 {
		return fmt.Sprintf("%s (%d available)", name, len(state.AvailableModels))
	}
	return name
}
