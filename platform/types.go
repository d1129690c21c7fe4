// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"

	"github.com/watchdeck/watchdeck/watchlist"
)

// StatusResponse is the backend's fully resolved status tree: every
// watched user grouped the way the document groups them, with live
// presence attached. The shape matches watchlist.Tree field for field;
// the alias types exist so the wire contract is spelled out here where
// the endpoints are documented.
type StatusResponse struct {
	Uncategorized []watchlist.StatusRecord   `json:"uncategorized"`
	Folders       []watchlist.FolderStatuses `json:"folders"`
	Groups        []watchlist.GroupStatuses  `json:"groups"`
}

// Tree converts the response into the panel's tree representation.
func (response StatusResponse) Tree() watchlist.Tree {
	return watchlist.Tree{
		Uncategorized: response.Uncategorized,
		Folders:       response.Folders,
		Groups:        response.Groups,
	}
}

// GroupInfo describes a directory group returned by group search.
// Consumed by the group picker dialog; listed here because the client
// carries the complete endpoint surface.
type GroupInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	MemberCount int    `json:"member_count"`
}

// UserProfile is a directory profile returned by user autocomplete.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
}

// APIError is a non-2xx response from the backend. Callers can use
// errors.As to inspect the status code:
//
//	var apiErr *platform.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound { ... }
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Message is the response body, trimmed.
	Message string
}

func (apiError *APIError) Error() string {
	return fmt.Sprintf("platform: %d: %s", apiError.StatusCode, apiError.Message)
}

// IsStatus reports whether err is an *APIError with the given HTTP
// status code.
func IsStatus(err error, statusCode int) bool {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode == statusCode
	}
	return false
}
