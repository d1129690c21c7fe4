// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchdeck/watchdeck/watchlist"
)

// editorMode says what the folder name editor is doing.
type editorMode int

const (
	editorNone editorMode = iota
	editorNewFolder
	editorRenameFolder
)

// sectionEditor is the inline folder-name input shown in place of the
// status bar while creating or renaming a folder.
type sectionEditor struct {
	mode     editorMode
	folderID string // Folder being renamed; empty for creation.
	input    textinput.Model
}

// newSectionEditor creates an idle editor.
func newSectionEditor() sectionEditor {
	input := textinput.New()
	input.CharLimit = 128 // Liberal cap; validation enforces the real limit.
	input.Prompt = "name: "
	return sectionEditor{input: input}
}

// Active reports whether the editor currently owns keyboard input.
func (editor sectionEditor) Active() bool {
	return editor.mode != editorNone
}

// StartCreate opens the editor for a new folder.
func (editor *sectionEditor) StartCreate() {
	editor.mode = editorNewFolder
	editor.folderID = ""
	editor.input.SetValue("")
	editor.input.Focus()
}

// StartRename opens the editor pre-filled with the folder's current
// name.
func (editor *sectionEditor) StartRename(folderID, currentName string) {
	editor.mode = editorRenameFolder
	editor.folderID = folderID
	editor.input.SetValue(currentName)
	editor.input.CursorEnd()
	editor.input.Focus()
}

// Close resets the editor to idle.
func (editor *sectionEditor) Close() {
	editor.mode = editorNone
	editor.folderID = ""
	editor.input.Blur()
	editor.input.SetValue("")
}

// Submit validates the entered name and closes the editor. The
// returned ok is false when the name is empty after trimming, too
// long, or contains control characters — in that case the edit is
// abandoned with no server call, matching cancel.
func (editor *sectionEditor) Submit() (mode editorMode, folderID, name string, ok bool) {
	mode = editor.mode
	folderID = editor.folderID
	name, ok = watchlist.ValidateFolderName(editor.input.Value())
	editor.Close()
	return mode, folderID, name, ok
}

// View renders the editor line for the status bar area.
func (editor sectionEditor) View(theme Theme, width int) string {
	label := "New folder"
	if editor.mode == editorRenameFolder {
		label = "Rename folder"
	}
	labelStyle := lipgloss.NewStyle().Foreground(theme.SectionForeground).Bold(true)
	line := labelStyle.Render(label) + "  " + editor.input.View()
	return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(line)
}
