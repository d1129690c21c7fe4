// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchlist defines the persisted watch-list document — the
// ordered set of watched users, user-defined folders, and watched
// directory groups — and the pure functions that derive the
// render-ready presentation tree from it.
//
// The document is plain data with full-replace persistence semantics:
// every mutation produces a new document that is PUT to the backend
// wholesale. All mutation helpers here are therefore copy-on-write;
// nothing in this package mutates a document in place. Ownership of
// the live document belongs to the panel's synchronization engine.
package watchlist
