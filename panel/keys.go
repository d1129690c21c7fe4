// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the watch-list panel.
type KeyMap struct {
	// Navigation.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Section collapse/expand on the selected header.
	Collapse key.Binding
	Expand   key.Binding

	// Keyboard reordering: grab the selected user, move the cursor to
	// the destination, drop with Confirm or abandon with Cancel.
	Grab key.Binding

	// Folder lifecycle.
	NewFolder    key.Binding // Open the new-folder name editor.
	Rename       key.Binding // Rename the selected folder.
	DeleteFolder key.Binding // Delete the selected folder (users move to the top-level list).

	// Removal: a watched user on a user row, the watched group on a
	// group header.
	Remove key.Binding

	// Editor and grab-mode control.
	Confirm key.Binding
	Cancel  key.Binding

	// Manual re-sync.
	Refresh key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Expand: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Grab: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "grab/drop"),
	),
	NewFolder: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new folder"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename folder"),
	),
	DeleteFolder: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "delete folder"),
	),
	Remove: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "remove"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
