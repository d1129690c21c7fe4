// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/watchdeck/watchdeck/watchlist"
)

// SectionKind distinguishes the three section flavors in the panel.
type SectionKind int

const (
	// KindUncategorized is the top-level watched-user list.
	KindUncategorized SectionKind = iota
	// KindFolder is a user-created folder.
	KindFolder
	// KindGroup is a watched directory group. Group members come from
	// the directory, so group rows are not draggable or removable.
	KindGroup
)

// ListItem is a single row in the rendered list: either a section
// header or a user entry.
type ListItem struct {
	// IsHeader is true for section headers and false for user rows.
	IsHeader bool

	// Kind and SectionID identify the section this row belongs to.
	// For the uncategorized section, SectionID is
	// watchlist.SectionUncategorized.
	Kind      SectionKind
	SectionID string

	// For headers: display title, collapse state, and member counts.
	Title     string
	Collapsed bool
	Total     int
	Online    int

	// Placeholder is true for the synthetic "(empty)" row emitted
	// inside an expanded empty folder or top-level list. It exists so
	// the section still presents a drop surface.
	Placeholder bool

	// For user rows: the resolved status record.
	User watchlist.StatusRecord
}

// Key returns a stable identifier for restoring the cursor across
// rebuilds: the section ID for headers, the user ID for user rows.
// User IDs can repeat across group sections, so rows are qualified by
// section.
func (item ListItem) Key() string {
	if item.IsHeader {
		return "header:" + item.SectionID
	}
	if item.Placeholder {
		return "empty:" + item.SectionID
	}
	return item.SectionID + ":" + item.User.UserID
}

// buildItems flattens a presentation tree into the displayed row list,
// honoring per-section collapse state. Section order is fixed: the
// top-level list, then folders in document order, then watched groups
// in document order.
func buildItems(tree watchlist.Tree, collapsed map[string]bool) []ListItem {
	var items []ListItem

	appendSection := func(kind SectionKind, sectionID, title string, users []watchlist.StatusRecord) {
		isCollapsed := collapsed[sectionID]
		items = append(items, ListItem{
			IsHeader:  true,
			Kind:      kind,
			SectionID: sectionID,
			Title:     title,
			Collapsed: isCollapsed,
			Total:     len(users),
			Online:    countOnline(users),
		})
		if isCollapsed {
			return
		}
		if len(users) == 0 && kind != KindGroup {
			items = append(items, ListItem{
				Kind:        kind,
				SectionID:   sectionID,
				Placeholder: true,
			})
			return
		}
		for _, user := range users {
			items = append(items, ListItem{
				Kind:      kind,
				SectionID: sectionID,
				User:      user,
			})
		}
	}

	appendSection(KindUncategorized, watchlist.SectionUncategorized, "Watched users", tree.Uncategorized)
	for _, folder := range tree.Folders {
		appendSection(KindFolder, folder.ID, folder.Name, folder.Users)
	}
	for _, group := range tree.Groups {
		appendSection(KindGroup, group.GroupID, group.DisplayName, group.Users)
	}
	return items
}

func countOnline(users []watchlist.StatusRecord) int {
	online := 0
	for _, user := range users {
		if user.Status != watchlist.StatusOffline && user.Status != "" {
			online++
		}
	}
	return online
}

// ListRenderer renders list rows at a fixed width.
type ListRenderer struct {
	theme Theme
	width int
}

// NewListRenderer creates a renderer for rows of the given width.
func NewListRenderer(theme Theme, width int) ListRenderer {
	return ListRenderer{theme: theme, width: width}
}

// RenderHeader renders a section header row: collapse marker, title,
// and an online/total count. The dropHere flag tints the header when
// it is the current drop target (appending to a collapsed or empty
// section).
func (renderer ListRenderer) RenderHeader(item ListItem, selected, dropHere bool) string {
	marker := "▾"
	if item.Collapsed {
		marker = "▸"
	}
	count := fmt.Sprintf("%d/%d", item.Online, item.Total)

	title := ansi.Truncate(item.Title, renderer.width-len(count)-5, "…")
	line := fmt.Sprintf("%s %s", marker, strings.ToUpper(title))
	padding := renderer.width - ansi.StringWidth(line) - ansi.StringWidth(count) - 1
	if padding < 1 {
		padding = 1
	}
	line += strings.Repeat(" ", padding) + count + " "

	style := lipgloss.NewStyle().
		Foreground(renderer.theme.SectionForeground).
		Bold(true).
		Width(renderer.width).
		MaxWidth(renderer.width)
	switch {
	case dropHere:
		style = style.Background(renderer.theme.DropBackground)
	case selected:
		style = style.Background(renderer.theme.SelectedBackground)
	}
	return style.Render(line)
}

// RenderUser renders a user row: presence dot, display name, and any
// custom status. The dragging flag tints the row being moved; the
// dropHere flag tints the row marking the insertion point, with the
// marker showing which side the user will land on.
func (renderer ListRenderer) RenderUser(item ListItem, selected, dragging, dropHere bool, dropSide watchlist.Side) string {
	dot := lipgloss.NewStyle().
		Foreground(renderer.theme.StatusColor(item.User.Status)).
		Render("●")

	name := item.User.DisplayName()
	suffix := ""
	if item.User.CustomStatus != "" {
		suffix = "  " + item.User.CustomStatus
	}

	marker := " "
	if dropHere {
		if dropSide == watchlist.SideAbove {
			marker = "↑"
		} else {
			marker = "↓"
		}
	}

	textWidth := renderer.width - 5 // marker, dot, spacing
	text := ansi.Truncate(name+suffix, textWidth, "…")

	nameStyle := lipgloss.NewStyle().Foreground(renderer.theme.NormalText)
	if item.User.Status == watchlist.StatusOffline || item.User.Status == "" {
		nameStyle = nameStyle.Foreground(renderer.theme.FaintText)
	}

	line := fmt.Sprintf("%s %s %s", marker, dot, nameStyle.Render(text))

	rowStyle := lipgloss.NewStyle().
		Width(renderer.width).
		MaxWidth(renderer.width)
	switch {
	case dragging:
		rowStyle = rowStyle.Background(renderer.theme.DragBackground)
	case dropHere:
		rowStyle = rowStyle.Background(renderer.theme.DropBackground)
	case selected:
		rowStyle = rowStyle.Background(renderer.theme.SelectedBackground)
	}
	return rowStyle.Render(line)
}

// RenderEmptySection renders the placeholder row shown inside an
// expanded empty folder, so it still presents a drop surface.
func (renderer ListRenderer) RenderEmptySection(dropHere bool) string {
	style := lipgloss.NewStyle().
		Foreground(renderer.theme.FaintText).
		Italic(true).
		Width(renderer.width).
		MaxWidth(renderer.width)
	if dropHere {
		style = style.Background(renderer.theme.DropBackground)
	}
	return style.Render("    (empty)")
}
