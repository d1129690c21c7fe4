// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchdeck/watchdeck/watchlist"
)

// defaultDwellDelay is how long a drag must hover a collapsed folder
// header before the folder auto-expands to accept the drop.
const defaultDwellDelay = 500 * time.Millisecond

// dropTarget describes where a dragged user would land: a section and
// an optional position within it. A nil insertion appends to the end
// of the section.
type dropTarget struct {
	sectionID string
	insertion *watchlist.Insertion
}

// dwellExpireMsg fires when a drag has hovered a collapsed section
// long enough to auto-expand it. The generation stamps the timer: a
// stale message (hover moved on, drag ended) is discarded.
type dwellExpireMsg struct {
	sectionID  string
	generation int
}

// dragState tracks an in-progress pointer drag of a user row. Created
// on press, discarded on release. A press that releases without any
// motion is a plain click, distinguished by the moved flag.
type dragState struct {
	userID      string
	fromSection string
	moved       bool

	// target is where a release right now would drop the user; nil
	// while hovering something that cannot accept the drop.
	target *dropTarget

	// hoverDepth tracks how many times the drag has entered each
	// section without leaving it. Hover transitions between adjacent
	// rows of one section fire enter-before-leave, so the count dips
	// to zero only on a real departure. Clamped at zero: a spurious
	// extra leave must not wedge the count negative and eat the next
	// enter.
	hoverDepth map[string]int

	// dwellSection is the collapsed section the pointer is currently
	// resting on, if any. dwellGeneration stamps the pending expand
	// timer; bumping it orphans the timer.
	dwellSection    string
	dwellGeneration int
}

// newDragState starts a drag of the given user out of the given
// section.
func newDragState(userID, fromSection string) *dragState {
	return &dragState{
		userID:      userID,
		fromSection: fromSection,
		hoverDepth:  make(map[string]int),
	}
}

// enterSection records the drag entering a section's hover area.
func (drag *dragState) enterSection(sectionID string) {
	drag.hoverDepth[sectionID]++
}

// leaveSection records the drag leaving a section's hover area.
func (drag *dragState) leaveSection(sectionID string) {
	if drag.hoverDepth[sectionID] > 0 {
		drag.hoverDepth[sectionID]--
	}
}

// hovering reports whether the drag is currently over the section.
func (drag *dragState) hovering(sectionID string) bool {
	return drag.hoverDepth[sectionID] > 0
}

// moveTo updates the hover bookkeeping for a pointer now over the
// given section ("" when over no section). Returns the collapsed
// section that just started a dwell, or "" if no new dwell began; the
// caller schedules the expand timer. The collapsed map is consulted to
// decide whether a dwell timer is worth starting.
func (drag *dragState) moveTo(sectionID string, collapsed map[string]bool) (dwellStarted string) {
	drag.moved = true

	previous := drag.currentSection()
	if sectionID == previous {
		return ""
	}
	if sectionID != "" {
		drag.enterSection(sectionID)
	}
	if previous != "" {
		drag.leaveSection(previous)
	}

	// Any hover change cancels a pending dwell.
	if drag.dwellSection != "" {
		drag.dwellSection = ""
		drag.dwellGeneration++
	}
	if sectionID != "" && collapsed[sectionID] {
		drag.dwellSection = sectionID
		drag.dwellGeneration++
		return sectionID
	}
	return ""
}

// currentSection returns the section the drag is hovering, or "".
func (drag *dragState) currentSection() string {
	for sectionID, depth := range drag.hoverDepth {
		if depth > 0 {
			return sectionID
		}
	}
	return ""
}

// dwellCurrent reports whether the given expire message matches the
// still-pending dwell.
func (drag *dragState) dwellCurrent(message dwellExpireMsg) bool {
	return drag.dwellSection == message.sectionID && drag.dwellGeneration == message.generation
}

// scheduleDwell returns a command that fires a dwellExpireMsg for the
// current dwell after the given delay.
func (drag *dragState) scheduleDwell(delay time.Duration) tea.Cmd {
	message := dwellExpireMsg{
		sectionID:  drag.dwellSection,
		generation: drag.dwellGeneration,
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return message
	})
}

// dropTargetForItem maps a hovered row to the insertion it implies.
// Terminal rows are one line tall, so there is no meaningful
// above/below midpoint within a row; instead:
//
//   - a user row means "insert below this user";
//   - a section header means "insert above the section's first user"
//     (append when the section is empty or collapsed);
//   - an empty-section placeholder means "append";
//   - group rows accept nothing (membership comes from the
//     directory).
//
// Dropping a user onto its own row is allowed and lands it back where
// it was.
func dropTargetForItem(item ListItem, tree watchlist.Tree) *dropTarget {
	if item.Kind == KindGroup {
		return nil
	}

	if item.Placeholder {
		return &dropTarget{sectionID: item.SectionID}
	}

	if item.IsHeader {
		first := firstUserIn(item.SectionID, tree)
		if first == "" || item.Collapsed {
			return &dropTarget{sectionID: item.SectionID}
		}
		return &dropTarget{
			sectionID: item.SectionID,
			insertion: &watchlist.Insertion{NeighborUserID: first, Side: watchlist.SideAbove},
		}
	}

	return &dropTarget{
		sectionID: item.SectionID,
		insertion: &watchlist.Insertion{NeighborUserID: item.User.UserID, Side: watchlist.SideBelow},
	}
}

// firstUserIn returns the ID of the first user in the given section,
// or "" when the section is empty or unknown.
func firstUserIn(sectionID string, tree watchlist.Tree) string {
	if sectionID == watchlist.SectionUncategorized {
		if len(tree.Uncategorized) == 0 {
			return ""
		}
		return tree.Uncategorized[0].UserID
	}
	for _, folder := range tree.Folders {
		if folder.ID == sectionID {
			if len(folder.Users) == 0 {
				return ""
			}
			return folder.Users[0].UserID
		}
	}
	return ""
}

// applyDrop produces the document resulting from dropping the dragged
// user at the target: removed from every current position, then
// inserted at the target's section and position. Returns false when
// the target folder vanished between hover and release, in which case
// the document is returned unchanged.
func applyDrop(document watchlist.Document, userID string, target dropTarget) (watchlist.Document, bool) {
	removed := document.WithUserRemoved(userID)
	updated, ok := removed.WithUserInserted(target.sectionID, userID, target.insertion)
	if !ok {
		return document, false
	}
	return updated, true
}
