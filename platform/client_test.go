// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchdeck/watchdeck/watchlist"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "test-token",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestRequestHeaders(t *testing.T) {
	var captured http.Header
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		captured = request.Header.Clone()
		writer.Write([]byte(`{"user_ids":[],"folders":[],"groups":[]}`))
	}))

	if _, err := client.WatchedUsers(context.Background()); err != nil {
		t.Fatalf("WatchedUsers: %v", err)
	}
	if got := captured.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := captured.Get("X-Requested-With"); got != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", got)
	}
}

func TestWatchedUsersNormalizesNilSlices(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// A server that has never stored the document returns nulls.
		writer.Write([]byte(`{"version":2,"user_ids":null,"folders":null,"groups":null}`))
	}))

	document, err := client.WatchedUsers(context.Background())
	if err != nil {
		t.Fatalf("WatchedUsers: %v", err)
	}
	if document.UserIDs == nil || document.Folders == nil || document.Groups == nil {
		t.Errorf("nil slices survived normalization: %+v", document)
	}
}

func TestPutWatchedUsersSendsFullDocument(t *testing.T) {
	var method, path string
	var body watchlist.Document
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		method = request.Method
		path = request.URL.Path
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		json.NewEncoder(writer).Encode(body)
	}))

	document := watchlist.Document{
		Version: 2,
		UserIDs: []string{},
		Folders: []watchlist.Folder{
			{ID: "f1", Name: "Team", UserIDs: []string{"u2", "u1"}},
		},
		Groups: []watchlist.WatchedGroup{},
	}
	returned, err := client.PutWatchedUsers(context.Background(), document)
	if err != nil {
		t.Fatalf("PutWatchedUsers: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %q, want PUT", method)
	}
	if path != "/watched-users" {
		t.Errorf("path = %q", path)
	}
	if len(body.Folders) != 1 || body.Folders[0].UserIDs[1] != "u1" {
		t.Errorf("server received %+v", body)
	}
	if len(returned.Folders) != 1 {
		t.Errorf("returned document %+v", returned)
	}
}

func TestDoRequestErrorTaxonomy(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "folder limit reached", http.StatusBadRequest)
	}))

	err := client.CreateFolder(context.Background(), "One Too Many")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "folder limit reached" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !IsStatus(err, http.StatusBadRequest) {
		t.Error("IsStatus(err, 400) = false")
	}
	if IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(err, 404) = true")
	}
}

func TestSearchGroupsQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("q"); got != "eng" {
			t.Errorf("query q = %q", got)
		}
		writer.Write([]byte(`[{"id":"g1","name":"engineering","display_name":"Engineering","member_count":12}]`))
	}))

	groups, err := client.SearchGroups(context.Background(), "eng")
	if err != nil {
		t.Fatalf("SearchGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "g1" || groups[0].MemberCount != 12 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGroupMembers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{"user_ids":["u1","u2"]}`))
	}))

	members, err := client.GroupMembers(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GroupMembers: %v", err)
	}
	if len(members) != 2 || members[0] != "u1" || members[1] != "u2" {
		t.Errorf("members = %v", members)
	}
}

func TestAutocompleteUsers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("name"); got != "al" {
			t.Errorf("query name = %q", got)
		}
		writer.Write([]byte(`[{"id":"u1","username":"alice","first_name":"Alice","last_name":"Liddell"}]`))
	}))

	profiles, err := client.AutocompleteUsers(context.Background(), "al")
	if err != nil {
		t.Fatalf("AutocompleteUsers: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Username != "alice" {
		t.Errorf("profiles = %+v", profiles)
	}
}

func TestLifecycleEndpointShapes(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]string
	}
	var calls []call
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		entry := call{method: request.Method, path: request.URL.Path}
		if request.Body != nil {
			json.NewDecoder(request.Body).Decode(&entry.body)
		}
		calls = append(calls, entry)
	}))

	ctx := context.Background()
	if err := client.CreateFolder(ctx, "Team"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := client.RenameFolder(ctx, "f1", "Core"); err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	if err := client.DeleteFolder(ctx, "f1"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if err := client.AddWatchedGroup(ctx, "g1", "Engineering"); err != nil {
		t.Fatalf("AddWatchedGroup: %v", err)
	}
	if err := client.RemoveWatchedGroup(ctx, "g1"); err != nil {
		t.Fatalf("RemoveWatchedGroup: %v", err)
	}

	want := []call{
		{method: http.MethodPost, path: "/folders", body: map[string]string{"name": "Team"}},
		{method: http.MethodPut, path: "/folders/f1", body: map[string]string{"name": "Core"}},
		{method: http.MethodDelete, path: "/folders/f1"},
		{method: http.MethodPost, path: "/watched-groups", body: map[string]string{"group_id": "g1", "display_name": "Engineering"}},
		{method: http.MethodDelete, path: "/watched-groups/g1"},
	}
	if len(calls) != len(want) {
		t.Fatalf("made %d calls, want %d", len(calls), len(want))
	}
	for index, expected := range want {
		got := calls[index]
		if got.method != expected.method || got.path != expected.path {
			t.Errorf("call %d = %s %s, want %s %s", index, got.method, got.path, expected.method, expected.path)
		}
		for key, value := range expected.body {
			if got.body[key] != value {
				t.Errorf("call %d body[%s] = %q, want %q", index, key, got.body[key], value)
			}
		}
	}
}

func TestStatusesTree(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{
			"uncategorized": [{"user_id":"u1","username":"alice","status":"online"}],
			"folders": [{"id":"f1","name":"Team","users":[{"user_id":"u2","username":"bob","status":"away"}]}],
			"groups": []
		}`))
	}))

	response, err := client.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	tree := response.Tree()
	if tree.TotalUsers() != 2 {
		t.Errorf("TotalUsers = %d, want 2", tree.TotalUsers())
	}
	if tree.Folders[0].Users[0].Status != watchlist.StatusAway {
		t.Errorf("folder user status = %q", tree.Folders[0].Users[0].Status)
	}
}
