// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package panel implements the watch-list terminal UI: a single-pane
// bubbletea program showing watched users grouped into folders and
// watched directory groups, with live presence updates, drag-and-drop
// reordering, and folder lifecycle management.
//
// All state lives in the bubbletea model and changes only inside
// Update. Network calls run as tea.Cmd functions; their results come
// back as messages, so the model never blocks and never needs locks.
package panel
