// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchdeck/watchdeck/platform"
	"github.com/watchdeck/watchdeck/watchlist"
)

// fakeBackend is an in-memory Backend for engine and model tests.
type fakeBackend struct {
	mu sync.Mutex

	document    watchlist.Document
	statuses    platform.StatusResponse
	documentErr error
	statusesErr error
	putErr      error

	putDocuments     []watchlist.Document
	createdFolders   []string
	renamedFolders   [][2]string
	deletedFolders   []string
	removedGroups    []string
	statusFetchCount int
}

func (backend *fakeBackend) Statuses(ctx context.Context) (*platform.StatusResponse, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.statusFetchCount++
	if backend.statusesErr != nil {
		return nil, backend.statusesErr
	}
	response := backend.statuses
	return &response, nil
}

func (backend *fakeBackend) WatchedUsers(ctx context.Context) (*watchlist.Document, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.documentErr != nil {
		return nil, backend.documentErr
	}
	document := backend.document.Clone()
	return &document, nil
}

func (backend *fakeBackend) PutWatchedUsers(ctx context.Context, document watchlist.Document) (*watchlist.Document, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.putDocuments = append(backend.putDocuments, document.Clone())
	if backend.putErr != nil {
		return nil, backend.putErr
	}
	backend.document = document.Clone()
	stored := backend.document.Clone()
	return &stored, nil
}

func (backend *fakeBackend) CreateFolder(ctx context.Context, name string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.createdFolders = append(backend.createdFolders, name)
	return nil
}

func (backend *fakeBackend) RenameFolder(ctx context.Context, folderID, name string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.renamedFolders = append(backend.renamedFolders, [2]string{folderID, name})
	return nil
}

func (backend *fakeBackend) DeleteFolder(ctx context.Context, folderID string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.deletedFolders = append(backend.deletedFolders, folderID)
	return nil
}

func (backend *fakeBackend) RemoveWatchedGroup(ctx context.Context, groupID string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.removedGroups = append(backend.removedGroups, groupID)
	return nil
}

func record(userID, status string) watchlist.StatusRecord {
	return watchlist.StatusRecord{UserID: userID, Username: userID, Status: status}
}

// testBackend returns a backend with one top-level user, one folder of
// two users, and one watched group.
func testBackend() *fakeBackend {
	return &fakeBackend{
		document: watchlist.Document{
			Version: 2,
			UserIDs: []string{"u1"},
			Folders: []watchlist.Folder{
				{ID: "f1", Name: "Team", UserIDs: []string{"u2", "u3"}},
			},
			Groups: []watchlist.WatchedGroup{
				{GroupID: "g1", DisplayName: "Engineering"},
			},
		},
		statuses: platform.StatusResponse{
			Uncategorized: []watchlist.StatusRecord{record("u1", watchlist.StatusOnline)},
			Folders: []watchlist.FolderStatuses{
				{ID: "f1", Name: "Team", Users: []watchlist.StatusRecord{
					record("u2", watchlist.StatusAway),
					record("u3", watchlist.StatusOffline),
				}},
			},
			Groups: []watchlist.GroupStatuses{
				{GroupID: "g1", DisplayName: "Engineering", Users: []watchlist.StatusRecord{
					record("u4", watchlist.StatusDND),
				}},
			},
		},
	}
}

// loadedEngine builds an engine and synchronously applies one full
// load, the way the model does when the LoadAll command's message
// arrives.
func loadedEngine(t *testing.T, backend *fakeBackend) Engine {
	t.Helper()
	engine := NewEngine(backend, nil)
	message, ok := engine.LoadAll()().(loadResultMsg)
	if !ok {
		t.Fatal("LoadAll command did not return a loadResultMsg")
	}
	engine.applyLoad(message)
	return engine
}

func TestLoadAllPopulatesTree(t *testing.T) {
	engine := loadedEngine(t, testBackend())

	if !engine.Ready() {
		t.Error("engine not ready after successful load")
	}
	tree := engine.Tree()
	if len(tree.Uncategorized) != 1 || tree.Uncategorized[0].UserID != "u1" {
		t.Errorf("uncategorized = %+v", tree.Uncategorized)
	}
	if len(tree.Folders) != 1 || len(tree.Folders[0].Users) != 2 {
		t.Errorf("folders = %+v", tree.Folders)
	}
	if len(tree.Groups) != 1 || tree.Groups[0].Users[0].UserID != "u4" {
		t.Errorf("groups = %+v", tree.Groups)
	}
}

func TestLoadHalvesFailIndependently(t *testing.T) {
	backend := testBackend()
	engine := loadedEngine(t, backend)

	// Second sync: the document fetch fails but statuses still apply.
	backend.mu.Lock()
	backend.documentErr = errors.New("boom")
	backend.statuses.Uncategorized[0].Status = watchlist.StatusAway
	backend.mu.Unlock()

	message := engine.LoadAll()().(loadResultMsg)
	engine.applyLoad(message)

	if !engine.Ready() {
		t.Error("ready must stay latched across a failed document fetch")
	}
	if got := engine.Tree().Uncategorized[0].Status; got != watchlist.StatusAway {
		t.Errorf("status = %q, want refreshed away", got)
	}
	if len(engine.Document().UserIDs) != 1 {
		t.Errorf("document blanked by failed fetch: %+v", engine.Document())
	}
}

func TestReadyNotLatchedByFailedStatusFetch(t *testing.T) {
	backend := testBackend()
	backend.statusesErr = errors.New("unavailable")
	engine := NewEngine(backend, nil)

	message := engine.LoadAll()().(loadResultMsg)
	engine.applyLoad(message)

	if engine.Ready() {
		t.Error("engine ready despite never fetching statuses")
	}
	// The document half still applied.
	if len(engine.Document().Folders) != 1 {
		t.Errorf("document = %+v", engine.Document())
	}
}

func TestApplyPresenceDelta(t *testing.T) {
	engine := loadedEngine(t, testBackend())

	engine.applyPresenceDelta("u2", watchlist.StatusOnline)
	if got := engine.Tree().Folders[0].Users[0].Status; got != watchlist.StatusOnline {
		t.Errorf("u2 status = %q after delta", got)
	}

	// Group members receive deltas too.
	engine.applyPresenceDelta("u4", watchlist.StatusOnline)
	if got := engine.Tree().Groups[0].Users[0].Status; got != watchlist.StatusOnline {
		t.Errorf("u4 status = %q after delta", got)
	}
}

func TestApplyPresenceDeltaIgnoresMalformedAndUnknown(t *testing.T) {
	engine := loadedEngine(t, testBackend())
	before := engine.Tree()

	engine.applyPresenceDelta("", watchlist.StatusOnline)
	engine.applyPresenceDelta("u2", "")
	engine.applyPresenceDelta("stranger", watchlist.StatusOnline)

	after := engine.Tree()
	if after.TotalUsers() != before.TotalUsers() {
		t.Errorf("user count changed: %d -> %d", before.TotalUsers(), after.TotalUsers())
	}
	if got := after.Folders[0].Users[0].Status; got != watchlist.StatusAway {
		t.Errorf("u2 status = %q, want untouched away", got)
	}
}

func TestPersistAndRefreshAppliesLocallyThenSaves(t *testing.T) {
	backend := testBackend()
	engine := loadedEngine(t, backend)

	updated, ok := engine.Document().
		WithUserRemoved("u1").
		WithUserInserted("f1", "u1", nil)
	if !ok {
		t.Fatal("insert into existing folder failed")
	}

	cmd := engine.PersistAndRefresh(updated)

	// Optimistic apply: visible before the command runs.
	if len(engine.Tree().Uncategorized) != 0 {
		t.Errorf("uncategorized = %+v before save", engine.Tree().Uncategorized)
	}

	message := cmd().(loadResultMsg)
	engine.applyLoad(message)

	if len(backend.putDocuments) != 1 {
		t.Fatalf("PutWatchedUsers called %d times", len(backend.putDocuments))
	}
	saved := backend.putDocuments[0]
	if len(saved.UserIDs) != 0 || len(saved.Folders[0].UserIDs) != 3 {
		t.Errorf("saved document = %+v", saved)
	}
}

func TestPersistFailureConvergesOnServerState(t *testing.T) {
	backend := testBackend()
	engine := loadedEngine(t, backend)
	backend.mu.Lock()
	backend.putErr = errors.New("rejected")
	backend.mu.Unlock()

	updated := engine.Document().WithUserRemoved("u1")
	cmd := engine.PersistAndRefresh(updated)

	message := cmd().(loadResultMsg)
	engine.applyLoad(message)

	// The re-fetch snaps the panel back to the server's document.
	if len(engine.Document().UserIDs) != 1 {
		t.Errorf("document after failed save = %+v", engine.Document())
	}
}

func TestLifecycleCommandsCallBackendAndResync(t *testing.T) {
	backend := testBackend()
	engine := loadedEngine(t, backend)
	fetchesBefore := backend.statusFetchCount

	for _, cmd := range []tea.Cmd{
		engine.CreateFolder("Oncall"),
		engine.RenameFolder("f1", "Core Team"),
		engine.DeleteFolder("f1"),
		engine.RemoveWatchedGroup("g1"),
	} {
		if _, ok := cmd().(loadResultMsg); !ok {
			t.Fatal("lifecycle command did not return a loadResultMsg")
		}
	}

	if len(backend.createdFolders) != 1 || backend.createdFolders[0] != "Oncall" {
		t.Errorf("createdFolders = %v", backend.createdFolders)
	}
	if len(backend.renamedFolders) != 1 || backend.renamedFolders[0] != [2]string{"f1", "Core Team"} {
		t.Errorf("renamedFolders = %v", backend.renamedFolders)
	}
	if len(backend.deletedFolders) != 1 || backend.deletedFolders[0] != "f1" {
		t.Errorf("deletedFolders = %v", backend.deletedFolders)
	}
	if len(backend.removedGroups) != 1 || backend.removedGroups[0] != "g1" {
		t.Errorf("removedGroups = %v", backend.removedGroups)
	}
	if backend.statusFetchCount != fetchesBefore+4 {
		t.Errorf("each mutation must re-sync: %d fetches for 4 mutations",
			backend.statusFetchCount-fetchesBefore)
	}
}
