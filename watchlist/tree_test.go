// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package watchlist

import "testing"

func TestBuildTreeResolvesInDocumentOrder(t *testing.T) {
	document := Document{
		UserIDs: []string{"u2", "u1"},
		Folders: []Folder{{ID: "f1", Name: "Team", UserIDs: []string{"u3"}}},
		Groups:  []WatchedGroup{{GroupID: "g1", DisplayName: "Platform"}},
	}
	statuses := map[string]StatusRecord{
		"u1": {UserID: "u1", Username: "alice", Status: StatusOnline},
		"u2": {UserID: "u2", Username: "bob", Status: StatusAway},
		"u3": {UserID: "u3", Username: "carol", Status: StatusDND},
	}
	members := map[string][]string{"g1": {"u3", "u1"}}

	tree := BuildTree(document, statuses, members)

	if len(tree.Uncategorized) != 2 || tree.Uncategorized[0].UserID != "u2" || tree.Uncategorized[1].UserID != "u1" {
		t.Errorf("uncategorized should follow document order, got %+v", tree.Uncategorized)
	}
	if len(tree.Folders) != 1 || tree.Folders[0].Name != "Team" || len(tree.Folders[0].Users) != 1 {
		t.Errorf("unexpected folders: %+v", tree.Folders)
	}
	if len(tree.Groups) != 1 || len(tree.Groups[0].Users) != 2 || tree.Groups[0].Users[0].UserID != "u3" {
		t.Errorf("group membership should follow external order, got %+v", tree.Groups)
	}
}

func TestBuildTreeUnknownUserDegradesToOffline(t *testing.T) {
	document := Document{UserIDs: []string{"ghost"}}
	tree := BuildTree(document, map[string]StatusRecord{}, nil)

	if len(tree.Uncategorized) != 1 {
		t.Fatalf("expected one record, got %d", len(tree.Uncategorized))
	}
	record := tree.Uncategorized[0]
	if record.UserID != "ghost" || record.Status != StatusOffline || record.Username != "" {
		t.Errorf("unknown user should be an offline placeholder, got %+v", record)
	}
}

func TestBuildTreeGroupOverlayNotExclusive(t *testing.T) {
	// u1 lives in a folder and also appears in a group's membership.
	document := Document{
		Folders: []Folder{{ID: "f1", Name: "Team", UserIDs: []string{"u1"}}},
		Groups:  []WatchedGroup{{GroupID: "g1", DisplayName: "Everyone"}},
	}
	statuses := map[string]StatusRecord{
		"u1": {UserID: "u1", Username: "alice", Status: StatusOnline},
	}
	tree := BuildTree(document, statuses, map[string][]string{"g1": {"u1"}})

	if len(tree.Folders[0].Users) != 1 || len(tree.Groups[0].Users) != 1 {
		t.Error("u1 should appear in both the folder and the group overlay")
	}
	if tree.TotalUsers() != 2 {
		t.Errorf("TotalUsers counts rendered rows, want 2 got %d", tree.TotalUsers())
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		record StatusRecord
		want   string
	}{
		{"nickname wins", StatusRecord{Nickname: "ace", FirstName: "Alice", Username: "alice"}, "ace"},
		{"full name", StatusRecord{FirstName: "Alice", LastName: "Liddell", Username: "alice"}, "Alice Liddell"},
		{"first only", StatusRecord{FirstName: "Alice", Username: "alice"}, "Alice"},
		{"username fallback", StatusRecord{Username: "alice", UserID: "u1"}, "alice"},
		{"id fallback", StatusRecord{UserID: "u1"}, "u1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.record.DisplayName(); got != test.want {
				t.Errorf("DisplayName() = %q, want %q", got, test.want)
			}
		})
	}
}
