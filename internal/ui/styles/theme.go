// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/pjq/chatcat/internal/model"
)

// Theme holds all the styled components for the application, built from
// one palette. Rebuild the theme when the theme preference changes.
type Theme struct {
	IsDark  bool
	Palette Palette

	// Layout dimensions, updated on terminal resize
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// CONVERSATION LIST STYLES
	// ==========================================================================

	ConvList         lipgloss.Style
	ConvItem         lipgloss.Style
	ConvItemSelected lipgloss.Style
	ConvTitle        lipgloss.Style
	ConvMeta         lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	ErrorBubble     lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	CharCount        lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusOK     lipgloss.Style
	StatusBad    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// SETTINGS FORM STYLES
	// ==========================================================================

	SettingsBox      lipgloss.Style
	SettingsTitle    lipgloss.Style
	FieldLabel       lipgloss.Style
	FieldValue       lipgloss.Style
	FieldSelected    lipgloss.Style
	ProviderActive   lipgloss.Style
	ProviderDisabled lipgloss.Style

	// ==========================================================================
	// ERROR BOX STYLES
	// ==========================================================================

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style
}

// NewTheme builds a theme from the persisted theme preference. ThemeSystem
// follows the terminal background; light and dark force their palette.
func NewTheme(pref model.Theme) *Theme {
	isDark := true
	switch pref {
	case model.ThemeLight:
		isDark = false
	case model.ThemeDark:
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}

	p := DarkPalette
	if !isDark {
		p = LightPalette
	}

	t := &Theme{
		IsDark:  isDark,
		Palette: p,
	}

	t.App = lipgloss.NewStyle().
		Foreground(p.TextPrimary)
	t.Container = lipgloss.NewStyle().
		Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.ConvList = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, true, false, false).
		BorderForeground(p.Overlay).
		PaddingRight(1)
	t.ConvItem = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Padding(0, 1)
	t.ConvItemSelected = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Background(p.SurfaceBright).
		Bold(true).
		Padding(0, 1)
	t.ConvTitle = lipgloss.NewStyle().
		Foreground(p.TextPrimary)
	t.ConvMeta = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserBubbleFg).
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		BorderForeground(p.UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.AsstBubbleFg).
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		BorderForeground(p.AsstBubbleBorder).
		PaddingLeft(1)
	t.SystemBubble = lipgloss.NewStyle().
		Foreground(p.SystemBubbleFg).
		Italic(true).
		PaddingLeft(1)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(p.ErrorBubbleFg).
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		BorderForeground(p.ErrorBubbleBorder).
		PaddingLeft(1)
	t.RoleLabel = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Brand).
		Bold(true)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted)
	t.CharCount = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Foreground(p.TextSecondary).
		Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().
		Foreground(p.Success).
		Bold(true)
	t.StatusBad = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.Brand).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)
	t.ThinkingText = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.SettingsBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(1, 2)
	t.SettingsTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true).
		MarginBottom(1)
	t.FieldLabel = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Width(18)
	t.FieldValue = lipgloss.NewStyle().
		Foreground(p.TextPrimary)
	t.FieldSelected = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Accent).
		Bold(true)
	t.ProviderActive = lipgloss.NewStyle().
		Foreground(p.Success).
		Bold(true)
	t.ProviderDisabled = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Strikethrough(true)

	t.ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(p.Error).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)
	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	return t
}

// SetSize records the terminal dimensions for layout math.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleFor returns the bubble style for a message role, with errors
// taking precedence.
func (t *Theme) BubbleFor(role model.Role, isError bool) lipgloss.Style {
	if isError {
		return t.ErrorBubble
	}
	switch role {
	case model.RoleUser:
		return t.UserBubble
	case model.RoleSystem:
		return t.SystemBubble
	}
	return t.AssistantBubble
}
