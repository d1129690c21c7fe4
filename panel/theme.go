// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/watchdeck/watchdeck/watchlist"
)

// Theme defines the color palette for the watch-list panel. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Presence dot colors.
	StatusOnline  lipgloss.Color
	StatusAway    lipgloss.Color
	StatusDND     lipgloss.Color
	StatusOffline lipgloss.Color

	// UI chrome.
	HeaderForeground  lipgloss.Color
	SectionForeground lipgloss.Color
	BorderColor       lipgloss.Color
	HelpText          lipgloss.Color

	// Drag feedback: background tint for the row being dragged and
	// for the row marking the insertion point.
	DragBackground lipgloss.Color
	DropBackground lipgloss.Color

	// Error notices in the status bar.
	ErrorText lipgloss.Color
}

// StatusColor returns the presence dot color for a status string.
// Unknown statuses render as offline.
func (theme Theme) StatusColor(status string) lipgloss.Color {
	switch status {
	case watchlist.StatusOnline:
		return theme.StatusOnline
	case watchlist.StatusAway:
		return theme.StatusAway
	case watchlist.StatusDND:
		return theme.StatusDND
	default:
		return theme.StatusOffline
	}
}

// DarkTheme is the built-in dark-terminal color scheme.
var DarkTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusOnline:  lipgloss.Color("114"), // green
	StatusAway:    lipgloss.Color("220"), // amber
	StatusDND:     lipgloss.Color("196"), // red
	StatusOffline: lipgloss.Color("243"), // gray

	HeaderForeground:  lipgloss.Color("255"),
	SectionForeground: lipgloss.Color("75"),
	BorderColor:       lipgloss.Color("240"),
	HelpText:          lipgloss.Color("241"),

	DragBackground: lipgloss.Color("58"),
	DropBackground: lipgloss.Color("24"),

	ErrorText: lipgloss.Color("203"),
}

// LightTheme adjusts the palette for light-background terminals.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("243"),

	SelectedBackground: lipgloss.Color("253"),
	SelectedForeground: lipgloss.Color("232"),

	StatusOnline:  lipgloss.Color("28"),
	StatusAway:    lipgloss.Color("130"),
	StatusDND:     lipgloss.Color("160"),
	StatusOffline: lipgloss.Color("245"),

	HeaderForeground:  lipgloss.Color("232"),
	SectionForeground: lipgloss.Color("26"),
	BorderColor:       lipgloss.Color("250"),
	HelpText:          lipgloss.Color("246"),

	DragBackground: lipgloss.Color("229"),
	DropBackground: lipgloss.Color("153"),

	ErrorText: lipgloss.Color("160"),
}

// DefaultTheme picks a palette based on the terminal background.
func DefaultTheme() Theme {
	if termenv.HasDarkBackground() {
		return DarkTheme
	}
	return LightTheme
}
