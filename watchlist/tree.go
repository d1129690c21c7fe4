// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package watchlist

// Presence status values as reported by the platform.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusDND     = "dnd"
	StatusOffline = "offline"
)

// StatusRecord is one watched user resolved against the live status
// lookup: directory profile fields plus current presence. Records are
// replaced whole when a presence delta arrives — never field-patched —
// so a record read from a tree is always internally consistent.
type StatusRecord struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Nickname       string `json:"nickname"`
	Status         string `json:"status"`
	CustomStatus   string `json:"custom_status"`
	CustomEmoji    string `json:"custom_emoji"`
	LastActivityAt int64  `json:"last_activity_at"`
}

// DisplayName returns the best available human-readable name for the
// record: nickname, then "First Last", then username, then the raw
// user ID.
func (record StatusRecord) DisplayName() string {
	if record.Nickname != "" {
		return record.Nickname
	}
	if record.FirstName != "" || record.LastName != "" {
		name := record.FirstName
		if record.LastName != "" {
			if name != "" {
				name += " "
			}
			name += record.LastName
		}
		return name
	}
	if record.Username != "" {
		return record.Username
	}
	return record.UserID
}

// FolderStatuses is a folder with its members resolved to status
// records, in document order.
type FolderStatuses struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Users []StatusRecord `json:"users"`
}

// GroupStatuses is a watched directory group with its live membership
// resolved to status records, in external-membership order.
type GroupStatuses struct {
	GroupID     string         `json:"group_id"`
	DisplayName string         `json:"display_name"`
	Users       []StatusRecord `json:"users"`
}

// Tree is the render-ready view derived from a document and a status
// lookup. It is never persisted; the panel's synchronization engine
// rebuilds or patches it as updates arrive.
type Tree struct {
	Uncategorized []StatusRecord   `json:"uncategorized"`
	Folders       []FolderStatuses `json:"folders"`
	Groups        []GroupStatuses  `json:"groups"`
}

// BuildTree derives a presentation tree from the document, a per-user
// status lookup, and per-group resolved membership (group ID to ordered
// member user IDs). Users missing from the lookup degrade to offline
// records with empty profile fields rather than failing the build.
// Group membership is not filtered against the document — a user may
// appear in a folder and in any number of groups simultaneously.
func BuildTree(document Document, statuses map[string]StatusRecord, members map[string][]string) Tree {
	tree := Tree{
		Uncategorized: resolveRecords(document.UserIDs, statuses),
		Folders:       make([]FolderStatuses, 0, len(document.Folders)),
		Groups:        make([]GroupStatuses, 0, len(document.Groups)),
	}

	for _, folder := range document.Folders {
		tree.Folders = append(tree.Folders, FolderStatuses{
			ID:    folder.ID,
			Name:  folder.Name,
			Users: resolveRecords(folder.UserIDs, statuses),
		})
	}

	for _, group := range document.Groups {
		tree.Groups = append(tree.Groups, GroupStatuses{
			GroupID:     group.GroupID,
			DisplayName: group.DisplayName,
			Users:       resolveRecords(members[group.GroupID], statuses),
		})
	}

	return tree
}

// resolveRecords maps user IDs to status records in order, substituting
// an offline placeholder for unknown IDs.
func resolveRecords(userIDs []string, statuses map[string]StatusRecord) []StatusRecord {
	records := make([]StatusRecord, 0, len(userIDs))
	for _, userID := range userIDs {
		record, known := statuses[userID]
		if !known {
			record = StatusRecord{UserID: userID, Status: StatusOffline}
		}
		records = append(records, record)
	}
	return records
}

// TotalUsers returns the number of resolved rows across all sections.
// Group rows count even when the same user also appears in a folder —
// the count reflects rendered rows, not distinct users.
func (tree Tree) TotalUsers() int {
	total := len(tree.Uncategorized)
	for _, folder := range tree.Folders {
		total += len(folder.Users)
	}
	for _, group := range tree.Groups {
		total += len(group.Users)
	}
	return total
}
