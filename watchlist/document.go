// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package watchlist

import (
	"strings"
	"unicode/utf8"
)

// SectionUncategorized is the section ID addressing the document's flat
// top-level user list. Folder sections are addressed by their folder ID.
const SectionUncategorized = "uncategorized"

// Limits enforced by the backend on the document shape. Checked
// client-side before issuing create calls so the panel can reject
// locally instead of surfacing a 400.
const (
	// MaxFolders is the maximum number of folders per watch list.
	MaxFolders = 50
	// MaxGroups is the maximum number of watched groups per watch list.
	MaxGroups = 20
	// maxFolderNameRunes caps folder names, counted in runes.
	maxFolderNameRunes = 64
)

// Document is the persisted watch list. The backend assigns Version on
// every save; the client round-trips it opaquely. A user ID appears in
// at most one of UserIDs or a single folder's UserIDs — groups are a
// read-only overlay resolved live from the directory, not an exclusive
// placement.
type Document struct {
	Version int            `json:"version"`
	UserIDs []string       `json:"user_ids"`
	Folders []Folder       `json:"folders"`
	Groups  []WatchedGroup `json:"groups"`
}

// Folder is a user-defined ordered grouping of watched users. The ID is
// assigned by the backend on creation and stable thereafter.
type Folder struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

// WatchedGroup references an externally-managed directory group.
// Membership is not stored client-side; it is resolved live from the
// directory on each refresh.
type WatchedGroup struct {
	GroupID     string `json:"group_id"`
	DisplayName string `json:"display_name"`
}

// Side selects which side of a neighbor row a dragged user lands on.
type Side int

const (
	// SideAbove inserts immediately before the neighbor.
	SideAbove Side = iota
	// SideBelow inserts immediately after the neighbor.
	SideBelow
)

// String returns "above" or "below" for diagnostics.
func (side Side) String() string {
	if side == SideAbove {
		return "above"
	}
	return "below"
}

// Insertion records where a dragged user should land relative to an
// existing row. A nil *Insertion means "append to the end of the
// section".
type Insertion struct {
	// NeighborUserID is the row the insertion is relative to.
	NeighborUserID string
	// Side is whether the user lands above or below the neighbor.
	Side Side
}

// Clone returns a deep copy of the document. Slices are copied so the
// result shares no backing storage with the receiver.
func (document Document) Clone() Document {
	clone := Document{
		Version: document.Version,
		UserIDs: append([]string(nil), document.UserIDs...),
		Folders: make([]Folder, len(document.Folders)),
		Groups:  append([]WatchedGroup(nil), document.Groups...),
	}
	for index, folder := range document.Folders {
		clone.Folders[index] = Folder{
			ID:      folder.ID,
			Name:    folder.Name,
			UserIDs: append([]string(nil), folder.UserIDs...),
		}
	}
	return clone
}

// Normalize returns a copy with nil slices replaced by empty ones.
// Applied to every fetched document so PUT bodies always serialize as
// [] rather than null, matching what the backend stores (it performs
// the same fixup on read).
func (document Document) Normalize() Document {
	normalized := document.Clone()
	if normalized.UserIDs == nil {
		normalized.UserIDs = []string{}
	}
	if normalized.Folders == nil {
		normalized.Folders = []Folder{}
	}
	if normalized.Groups == nil {
		normalized.Groups = []WatchedGroup{}
	}
	for index := range normalized.Folders {
		if normalized.Folders[index].UserIDs == nil {
			normalized.Folders[index].UserIDs = []string{}
		}
	}
	return normalized
}

// WithUserRemoved returns a copy of the document with userID removed
// from the top-level list and from every folder, preserving the
// relative order of all remaining entries. Removing an absent ID is a
// no-op (beyond the copy). Every insertion must be preceded by this
// call so a user ID never occupies two places of record.
func (document Document) WithUserRemoved(userID string) Document {
	result := document.Clone()
	result.UserIDs = removeID(result.UserIDs, userID)
	for index := range result.Folders {
		result.Folders[index].UserIDs = removeID(result.Folders[index].UserIDs, userID)
	}
	return result
}

// removeID filters id out of ids, preserving order. The input slice is
// not modified.
func removeID(ids []string, id string) []string {
	filtered := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// WithUserInserted returns a copy of the document with userID inserted
// into the section identified by sectionID (SectionUncategorized or a
// folder ID), positioned by insertion:
//
//   - insertion nil: append to the end of the section
//   - neighbor present: immediately before it (SideAbove) or after it
//     (SideBelow)
//   - neighbor absent (for example it was the dragged user itself,
//     already pruned): append to the end
//
// Returns false with the document unchanged when sectionID names a
// folder that no longer exists — the caller treats that as a silently
// dropped drop. The caller is responsible for removing userID from its
// previous place of record first (see [Document.WithUserRemoved]).
func (document Document) WithUserInserted(sectionID, userID string, insertion *Insertion) (Document, bool) {
	result := document.Clone()

	if sectionID == SectionUncategorized {
		result.UserIDs = insertRelative(result.UserIDs, userID, insertion)
		return result, true
	}

	for index := range result.Folders {
		if result.Folders[index].ID == sectionID {
			result.Folders[index].UserIDs = insertRelative(result.Folders[index].UserIDs, userID, insertion)
			return result, true
		}
	}

	// Folder vanished between hover and drop (deleted by a concurrent
	// refresh). The drop is discarded.
	return document, false
}

// insertRelative places id into ids according to insertion, appending
// when there is no insertion or the neighbor is not found.
func insertRelative(ids []string, id string, insertion *Insertion) []string {
	position := len(ids)
	if insertion != nil {
		for index, candidate := range ids {
			if candidate == insertion.NeighborUserID {
				position = index
				if insertion.Side == SideBelow {
					position = index + 1
				}
				break
			}
		}
	}

	inserted := make([]string, 0, len(ids)+1)
	inserted = append(inserted, ids[:position]...)
	inserted = append(inserted, id)
	inserted = append(inserted, ids[position:]...)
	return inserted
}

// FolderByID returns the folder with the given ID, or false when no
// such folder exists.
func (document Document) FolderByID(folderID string) (Folder, bool) {
	for _, folder := range document.Folders {
		if folder.ID == folderID {
			return folder, true
		}
	}
	return Folder{}, false
}

// ContainsUser reports whether userID has a place of record anywhere
// in the document (top-level list or any folder). Group membership is
// not consulted — groups are an overlay, not a placement.
func (document Document) ContainsUser(userID string) bool {
	for _, id := range document.UserIDs {
		if id == userID {
			return true
		}
	}
	for _, folder := range document.Folders {
		for _, id := range folder.UserIDs {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// ValidateFolderName trims the candidate name and reports whether the
// result is acceptable: non-empty after trimming, at most 64 runes,
// and free of control characters other than tab. Mirrors the backend's
// validation so the panel can reject locally without a round trip.
func ValidateFolderName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if utf8.RuneCountInString(name) > maxFolderNameRunes {
		return "", false
	}
	for _, character := range name {
		if character == 0 || (character < 32 && character != '\t') {
			return "", false
		}
	}
	return name, true
}
