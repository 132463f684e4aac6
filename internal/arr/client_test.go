// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package arr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeparr/sweeparr/internal/domain"
)

func TestGetQueueUsesVersionedEndpointAndAPIKey(t *testing.T) {
	tests := []struct {
		arrType      domain.ArrType
		expectedPath string
	}{
		{domain.ArrTypeSonarr, "/api/v3/queue"},
		{domain.ArrTypeRadarr, "/api/v3/queue"},
		{domain.ArrTypeLidarr, "/api/v1/queue"},
	}

	for _, tt := range tests {
		t.Run(string(tt.arrType), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectedPath, r.URL.Path)
				assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
				assert.Equal(t, "1", r.URL.Query().Get("page"))
				assert.Equal(t, "1000", r.URL.Query().Get("pageSize"))

				json.NewEncoder(w).Encode(QueueResponse{
					Page:         1,
					PageSize:     1000,
					TotalRecords: 1,
					Records: []QueueRecord{
						{ID: 42, DownloadID: "ABC123", Title: "Some Show S01E01"},
					},
				})
			}))
			defer server.Close()

			client := NewClient(Config{
				Name:    string(tt.arrType),
				Type:    tt.arrType,
				BaseURL: server.URL,
				APIKey:  "secret",
			})

			queue, err := client.GetQueue(context.Background(), 0, 0)
			require.NoError(t, err)
			require.Len(t, queue.Records, 1)
			assert.Equal(t, int64(42), queue.Records[0].ID)
			assert.Equal(t, "ABC123", queue.Records[0].DownloadID)
		})
	}
}

func TestDeleteQueueItemSendsFlags(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{Name: "sonarr", Type: domain.ArrTypeSonarr, BaseURL: server.URL, APIKey: "secret"})

	err := client.DeleteQueueItem(context.Background(), 1337, true, true)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v3/queue/1337", gotPath)
	assert.Contains(t, gotQuery, "removeFromClient=true")
	assert.Contains(t, gotQuery, "blocklist=true")
}

func TestRunCommandPostsNameAndParams(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/command", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(Config{Name: "sonarr", Type: domain.ArrTypeSonarr, BaseURL: server.URL, APIKey: "secret"})

	err := client.RunCommand(context.Background(), "DownloadedEpisodesScan", map[string]any{"path": "/data/stuck"})
	require.NoError(t, err)
	assert.Equal(t, "DownloadedEpisodesScan", gotBody["name"])
	assert.Equal(t, "/data/stuck", gotBody["path"])
}

func TestClientSurfacesAuthFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{Name: "radarr", Type: domain.ArrTypeRadarr, BaseURL: server.URL, APIKey: "wrong"})

	_, err := client.GetQueue(context.Background(), 1, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
