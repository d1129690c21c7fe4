// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchdeck/watchdeck/platform"
	"github.com/watchdeck/watchdeck/watchlist"
)

// requestTimeout bounds every backend call made from a tea.Cmd.
const requestTimeout = 15 * time.Second

// Backend is the server surface the engine needs. *platform.Client
// implements it; tests substitute a fake.
type Backend interface {
	Statuses(ctx context.Context) (*platform.StatusResponse, error)
	WatchedUsers(ctx context.Context) (*watchlist.Document, error)
	PutWatchedUsers(ctx context.Context, document watchlist.Document) (*watchlist.Document, error)
	CreateFolder(ctx context.Context, name string) error
	RenameFolder(ctx context.Context, folderID, name string) error
	DeleteFolder(ctx context.Context, folderID string) error
	RemoveWatchedGroup(ctx context.Context, groupID string) error
}

// loadResultMsg carries the outcome of a full re-sync: the watch-list
// document and the resolved status tree, fetched concurrently. The two
// halves fail independently; a nil error means that half is fresh.
type loadResultMsg struct {
	document    *watchlist.Document
	documentErr error
	statuses    *platform.StatusResponse
	statusesErr error
}

// Engine owns the synchronized watch-list state: the persisted
// document, the latest known presence for every resolved user, and
// the presentation tree derived from the two. It runs entirely inside
// the bubbletea update loop; the only concurrency is inside the
// tea.Cmd closures it returns, which touch no engine state.
//
// Writes are full-document saves with no concurrency control: the
// last writer wins, and the unconditional re-fetch after every save
// converges the panel on whatever the server ended up with.
type Engine struct {
	backend Backend
	logger  *slog.Logger

	document watchlist.Document
	statuses map[string]watchlist.StatusRecord
	members  map[string][]string
	tree     watchlist.Tree

	// ready latches true on the first successful status fetch and
	// never unlatches: once the panel has rendered real data, a
	// failed background refresh keeps showing the stale tree rather
	// than flashing back to a loading screen.
	ready bool
}

// NewEngine creates an engine over the given backend. If logger is
// nil, slog.Default() is used.
func NewEngine(backend Backend, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return Engine{
		backend:  backend,
		logger:   logger,
		document: watchlist.Document{}.Normalize(),
		statuses: make(map[string]watchlist.StatusRecord),
		members:  make(map[string][]string),
	}
}

// Ready reports whether at least one status fetch has succeeded.
func (engine Engine) Ready() bool {
	return engine.ready
}

// Document returns the current watch-list document.
func (engine Engine) Document() watchlist.Document {
	return engine.document
}

// Tree returns the current presentation tree.
func (engine Engine) Tree() watchlist.Tree {
	return engine.tree
}

// LoadAll returns a command that fetches the watch-list document and
// the resolved status tree concurrently, delivering both halves in a
// single loadResultMsg. Each half carries its own error so one failed
// endpoint never blanks the other's data.
func (engine Engine) LoadAll() tea.Cmd {
	backend := engine.backend
	logger := engine.logger
	return func() tea.Msg {
		return fetchAll(backend, logger)
	}
}

// fetchAll performs the two re-sync fetches concurrently.
func fetchAll(backend Backend, logger *slog.Logger) loadResultMsg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var message loadResultMsg
	var group sync.WaitGroup
	group.Add(2)
	go func() {
		defer group.Done()
		message.document, message.documentErr = backend.WatchedUsers(ctx)
	}()
	go func() {
		defer group.Done()
		message.statuses, message.statusesErr = backend.Statuses(ctx)
	}()
	group.Wait()

	if message.documentErr != nil {
		logger.Warn("fetching watch list", "error", message.documentErr)
	}
	if message.statusesErr != nil {
		logger.Warn("fetching statuses", "error", message.statusesErr)
	}
	return message
}

// applyLoad folds a load result into the engine. Each half applies
// only if it succeeded; the tree is rebuilt either way so a fresh
// document shows immediately even when the status fetch failed.
func (engine *Engine) applyLoad(message loadResultMsg) {
	if message.documentErr == nil && message.document != nil {
		engine.document = message.document.Normalize()
	}
	if message.statusesErr == nil && message.statuses != nil {
		engine.statuses, engine.members = indexStatuses(message.statuses)
		engine.ready = true
	}
	engine.rebuildTree()
}

// applyPresenceDelta folds a live status-change event into the status
// map and rebuilds the tree. Deltas with an empty user ID or status
// are dropped, as are deltas for users the panel is not watching.
func (engine *Engine) applyPresenceDelta(userID, status string) {
	if userID == "" || status == "" {
		return
	}
	if !engine.watching(userID) {
		return
	}
	record := engine.statuses[userID]
	record.UserID = userID
	record.Status = status
	record.LastActivityAt = time.Now().UnixMilli()
	engine.statuses[userID] = record
	engine.rebuildTree()
}

// watching reports whether the user appears anywhere in the panel:
// the document's top-level list, a folder, or a watched group's
// membership.
func (engine *Engine) watching(userID string) bool {
	if engine.document.ContainsUser(userID) {
		return true
	}
	for _, memberIDs := range engine.members {
		for _, memberID := range memberIDs {
			if memberID == userID {
				return true
			}
		}
	}
	return false
}

// PersistAndRefresh applies the document locally so the UI reflects
// the change this frame, then returns a command that saves the full
// document and unconditionally re-syncs. The save error (if any) is
// logged and otherwise ignored: the follow-up fetch replaces local
// state with whatever the server actually holds, so a failed save
// simply snaps the panel back.
func (engine *Engine) PersistAndRefresh(document watchlist.Document) tea.Cmd {
	engine.document = document.Normalize()
	engine.rebuildTree()

	backend := engine.backend
	logger := engine.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := backend.PutWatchedUsers(ctx, document); err != nil {
			logger.Warn("saving watch list", "error", err)
		}
		return fetchAll(backend, logger)
	}
}

// CreateFolder returns a command that creates a folder server-side and
// re-syncs. The server assigns the folder ID; the refresh brings it in.
func (engine Engine) CreateFolder(name string) tea.Cmd {
	backend := engine.backend
	return engine.mutate("creating folder", func(ctx context.Context) error {
		return backend.CreateFolder(ctx, name)
	})
}

// RenameFolder returns a command that renames a folder server-side and
// re-syncs.
func (engine Engine) RenameFolder(folderID, name string) tea.Cmd {
	backend := engine.backend
	return engine.mutate("renaming folder", func(ctx context.Context) error {
		return backend.RenameFolder(ctx, folderID, name)
	})
}

// DeleteFolder returns a command that deletes a folder server-side and
// re-syncs. The server moves the folder's users back to the top-level
// list; the refresh picks up the reparented document.
func (engine Engine) DeleteFolder(folderID string) tea.Cmd {
	backend := engine.backend
	return engine.mutate("deleting folder", func(ctx context.Context) error {
		return backend.DeleteFolder(ctx, folderID)
	})
}

// RemoveWatchedGroup returns a command that stops watching a directory
// group and re-syncs.
func (engine Engine) RemoveWatchedGroup(groupID string) tea.Cmd {
	backend := engine.backend
	return engine.mutate("removing watched group", func(ctx context.Context) error {
		return backend.RemoveWatchedGroup(ctx, groupID)
	})
}

// mutate runs a lifecycle call and then a full re-sync, regardless of
// whether the call succeeded. Errors are logged; the refresh converges
// the panel on the server's actual state either way.
func (engine Engine) mutate(operation string, call func(context.Context) error) tea.Cmd {
	backend := engine.backend
	logger := engine.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := call(ctx); err != nil {
			logger.Warn(operation, "error", err)
		}
		return fetchAll(backend, logger)
	}
}

// rebuildTree re-derives the presentation tree from the document and
// the status map.
func (engine *Engine) rebuildTree() {
	engine.tree = watchlist.BuildTree(engine.document, engine.statuses, engine.members)
}

// indexStatuses flattens a status response into a user-keyed record
// map plus per-group membership lists (in the server's resolved
// order).
func indexStatuses(response *platform.StatusResponse) (map[string]watchlist.StatusRecord, map[string][]string) {
	statuses := make(map[string]watchlist.StatusRecord)
	for _, record := range response.Uncategorized {
		statuses[record.UserID] = record
	}
	for _, folder := range response.Folders {
		for _, record := range folder.Users {
			statuses[record.UserID] = record
		}
	}

	members := make(map[string][]string)
	for _, group := range response.Groups {
		memberIDs := make([]string, 0, len(group.Users))
		for _, record := range group.Users {
			statuses[record.UserID] = record
			memberIDs = append(memberIDs, record.UserID)
		}
		members[group.GroupID] = memberIDs
	}
	return statuses, members
}
