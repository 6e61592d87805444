// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Palette is one concrete color set. Unlike adaptive colors it is selected
// from the persisted theme preference, so "light" and "dark" follow the
// user's choice and not the terminal's guess.
type Palette struct {
	// Accents
	Accent  lipgloss.Color // assistant highlights, selections
	Brand   lipgloss.Color // user highlights, prompts
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Surfaces
	Surface       lipgloss.Color
	SurfaceDim    lipgloss.Color
	SurfaceBright lipgloss.Color
	Overlay       lipgloss.Color

	// Text
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextInverse   lipgloss.Color

	// Message bubbles
	UserBubbleFg      lipgloss.Color
	UserBubbleBorder  lipgloss.Color
	AsstBubbleFg      lipgloss.Color
	AsstBubbleBorder  lipgloss.Color
	SystemBubbleFg    lipgloss.Color
	ErrorBubbleFg     lipgloss.Color
	ErrorBubbleBorder lipgloss.Color
}

// DarkPalette is the default color set.
var DarkPalette = Palette{
	Accent:  lipgloss.Color("#A78BFA"),
	Brand:   lipgloss.Color("#22D3EE"),
	Success: lipgloss.Color("#34D399"),
	Warning: lipgloss.Color("#FBBF24"),
	Error:   lipgloss.Color("#FB7185"),

	Surface:       lipgloss.Color("#1E1E2E"),
	SurfaceDim:    lipgloss.Color("#181825"),
	SurfaceBright: lipgloss.Color("#313244"),
	Overlay:       lipgloss.Color("#45475A"),

	TextPrimary:   lipgloss.Color("#CDD6F4"),
	TextSecondary: lipgloss.Color("#A6ADC8"),
	TextMuted:     lipgloss.Color("#6C7086"),
	TextInverse:   lipgloss.Color("#1E1E2E"),

	UserBubbleFg:      lipgloss.Color("#E0F2FE"),
	UserBubbleBorder:  lipgloss.Color("#3B82F6"),
	AsstBubbleFg:      lipgloss.Color("#E9E4F5"),
	AsstBubbleBorder:  lipgloss.Color("#A78BFA"),
	SystemBubbleFg:    lipgloss.Color("#FEF3C7"),
	ErrorBubbleFg:     lipgloss.Color("#FECACA"),
	ErrorBubbleBorder: lipgloss.Color("#FB7185"),
}

// LightPalette mirrors DarkPalette for light terminals.
var LightPalette = Palette{
	Accent:  lipgloss.Color("#7C3AED"),
	Brand:   lipgloss.Color("#0891B2"),
	Success: lipgloss.Color("#059669"),
	Warning: lipgloss.Color("#D97706"),
	Error:   lipgloss.Color("#E11D48"),

	Surface:       lipgloss.Color("#FFFFFF"),
	SurfaceDim:    lipgloss.Color("#F5F5F5"),
	SurfaceBright: lipgloss.Color("#FAFAFA"),
	Overlay:       lipgloss.Color("#D4D4D4"),

	TextPrimary:   lipgloss.Color("#1F2937"),
	TextSecondary: lipgloss.Color("#6B7280"),
	TextMuted:     lipgloss.Color("#9CA3AF"),
	TextInverse:   lipgloss.Color("#FFFFFF"),

	UserBubbleFg:      lipgloss.Color("#1E40AF"),
	UserBubbleBorder:  lipgloss.Color("#3B82F6"),
	AsstBubbleFg:      lipgloss.Color("#5B4B8A"),
	AsstBubbleBorder:  lipgloss.Color("#C4B5FD"),
	SystemBubbleFg:    lipgloss.Color("#92400E"),
	ErrorBubbleFg:     lipgloss.Color("#991B1B"),
	ErrorBubbleBorder: lipgloss.Color("#E11D48"),
}

// =============================================================================
// ACCESSIBILITY: shape indicators alongside colors
// =============================================================================

// StatusIndicatorSet contains text/shape indicators for status states.
// These provide visual cues beyond color for colorblind users.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Active  string
}

// StatusIndicators provides accessible ASCII shape indicators.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

// RenderSuccess renders a success message with indicator and bold color.
func (p Palette) RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(p.Success).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with indicator and bold color.
func (p Palette) RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(p.Error).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with indicator and bold color.
func (p Palette) RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(p.Warning).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderStatus renders a status message by outcome.
func (p Palette) RenderStatus(success bool, message string) string {
	if success {
		return p.RenderSuccess(message)
	}
	return p.RenderError(message)
}
