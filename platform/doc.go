// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform is the client surface for the host chat platform:
// a typed REST client for the watch-list backend endpoints and a
// websocket event stream delivering presence-change and reconnect
// notifications.
//
// Everything here is an external collaborator from the panel's point
// of view — the panel depends only on the request/response contracts,
// not on how the backend stores or computes anything.
package platform
