// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/watchdeck/watchdeck/watchlist"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the root of the watch-list API (e.g.
	// "https://chat.example.com/plugins/watchdeck/api/v1").
	BaseURL string
	// Token is the access token sent as a bearer credential on every
	// request.
	Token string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is a typed HTTP client for the watch-list backend. All
// methods send JSON, return JSON, and convert non-2xx responses into
// *APIError. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given backend.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("platform: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("platform: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Statuses fetches the resolved status tree for the caller's watch
// list.
func (client *Client) Statuses(ctx context.Context) (*StatusResponse, error) {
	body, err := client.doRequest(ctx, http.MethodGet, "/statuses", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: fetching statuses: %w", err)
	}
	var response StatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("platform: parsing status response: %w", err)
	}
	return &response, nil
}

// WatchedUsers fetches the caller's watch-list document. The result is
// normalized so all slices are non-nil.
func (client *Client) WatchedUsers(ctx context.Context) (*watchlist.Document, error) {
	body, err := client.doRequest(ctx, http.MethodGet, "/watched-users", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: fetching watched users: %w", err)
	}
	var document watchlist.Document
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("platform: parsing watched users: %w", err)
	}
	normalized := document.Normalize()
	return &normalized, nil
}

// PutWatchedUsers replaces the caller's watch-list document wholesale.
// There is no partial patch: the body always overwrites the entire
// stored document. Returns the document as saved (the backend echoes
// it with a fresh version).
func (client *Client) PutWatchedUsers(ctx context.Context, document watchlist.Document) (*watchlist.Document, error) {
	body, err := client.doRequest(ctx, http.MethodPut, "/watched-users", nil, document.Normalize())
	if err != nil {
		return nil, fmt.Errorf("platform: replacing watched users: %w", err)
	}
	var saved watchlist.Document
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("platform: parsing saved watched users: %w", err)
	}
	normalized := saved.Normalize()
	return &normalized, nil
}

// CreateFolder creates a new empty folder with the given name. The
// backend assigns the folder ID and rejects names that fail
// validation or would exceed the folder limit.
func (client *Client) CreateFolder(ctx context.Context, name string) error {
	request := map[string]string{"name": name}
	if _, err := client.doRequest(ctx, http.MethodPost, "/folders", nil, request); err != nil {
		return fmt.Errorf("platform: creating folder: %w", err)
	}
	return nil
}

// RenameFolder changes the name of an existing folder.
func (client *Client) RenameFolder(ctx context.Context, folderID, name string) error {
	request := map[string]string{"name": name}
	path := "/folders/" + url.PathEscape(folderID)
	if _, err := client.doRequest(ctx, http.MethodPut, path, nil, request); err != nil {
		return fmt.Errorf("platform: renaming folder %s: %w", folderID, err)
	}
	return nil
}

// DeleteFolder removes a folder. The backend moves the folder's users
// to the uncategorized list; the caller observes that on the next
// refresh.
func (client *Client) DeleteFolder(ctx context.Context, folderID string) error {
	path := "/folders/" + url.PathEscape(folderID)
	if _, err := client.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("platform: deleting folder %s: %w", folderID, err)
	}
	return nil
}

// AddWatchedGroup adds a directory group to the watch list. The
// backend validates that the group exists and is not already watched.
func (client *Client) AddWatchedGroup(ctx context.Context, groupID, displayName string) error {
	request := map[string]string{
		"group_id":     groupID,
		"display_name": displayName,
	}
	if _, err := client.doRequest(ctx, http.MethodPost, "/watched-groups", nil, request); err != nil {
		return fmt.Errorf("platform: adding watched group %s: %w", groupID, err)
	}
	return nil
}

// RemoveWatchedGroup stops watching a directory group. The group
// itself and the document's folders and users are unaffected.
func (client *Client) RemoveWatchedGroup(ctx context.Context, groupID string) error {
	path := "/watched-groups/" + url.PathEscape(groupID)
	if _, err := client.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("platform: removing watched group %s: %w", groupID, err)
	}
	return nil
}

// SearchGroups returns directory groups matching the query. An empty
// query returns all watchable groups.
func (client *Client) SearchGroups(ctx context.Context, query string) ([]GroupInfo, error) {
	values := url.Values{"q": []string{query}}
	body, err := client.doRequest(ctx, http.MethodGet, "/groups", values, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: searching groups: %w", err)
	}
	var groups []GroupInfo
	if err := json.Unmarshal(body, &groups); err != nil {
		return nil, fmt.Errorf("platform: parsing group search response: %w", err)
	}
	return groups, nil
}

// GroupMembers returns the current member user IDs of a directory
// group, in the directory's order.
func (client *Client) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	path := "/groups/" + url.PathEscape(groupID) + "/members"
	body, err := client.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: fetching members of group %s: %w", groupID, err)
	}
	var response struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("platform: parsing group members: %w", err)
	}
	return response.UserIDs, nil
}

// AutocompleteUsers returns directory profiles whose names match the
// given prefix.
func (client *Client) AutocompleteUsers(ctx context.Context, name string) ([]UserProfile, error) {
	values := url.Values{"name": []string{name}}
	body, err := client.doRequest(ctx, http.MethodGet, "/users/autocomplete", values, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: user autocomplete: %w", err)
	}
	var profiles []UserProfile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, fmt.Errorf("platform: parsing autocomplete response: %w", err)
	}
	return profiles, nil
}

// doRequest performs an HTTP request against the backend and returns
// the response body. On 2xx, returns the body. On any other status,
// returns an *APIError carrying the status code and body text.
func (client *Client) doRequest(ctx context.Context, method, path string, query url.Values, requestBody any) ([]byte, error) {
	requestURL := client.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	// XMLHttpRequest marks the request as same-origin AJAX for the
	// host platform's CSRF check; the bearer token authenticates it.
	request.Header.Set("X-Requested-With", "XMLHttpRequest")
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: response.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
