// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeparr/sweeparr/internal/arr"
)

type stubFetcher struct {
	name    string
	records []arr.QueueRecord
	err     error
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) GetQueue(_ context.Context, _, _ int) (*arr.QueueResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &arr.QueueResponse{Records: f.records, TotalRecords: len(f.records)}, nil
}

func TestBuildQueueMap(t *testing.T) {
	t.Parallel()

	m := BuildQueueMap([]arr.QueueRecord{
		{ID: 10, DownloadID: "ABC123", Title: "Show S01E01"},
		{ID: 11, DownloadID: " def456 ", Title: ""},
		{ID: 12, DownloadID: "", Title: "usenet entry without a hash"},
	})

	require.Len(t, m, 2)

	owner, ok := m["abc123"]
	require.True(t, ok)
	assert.Equal(t, int64(10), owner.QueueID)
	assert.Equal(t, "Show S01E01", owner.Title)

	owner, ok = m["def456"]
	require.True(t, ok)
	assert.Equal(t, "Unknown", owner.Title)
}

func TestFetchQueueMapsPreservesOrder(t *testing.T) {
	t.Parallel()

	fetchers := []QueueFetcher{
		&stubFetcher{name: "sonarr", records: []arr.QueueRecord{{ID: 1, DownloadID: "aaa"}}},
		&stubFetcher{name: "radarr", records: []arr.QueueRecord{{ID: 2, DownloadID: "bbb"}}},
	}

	maps := fetchQueueMaps(context.Background(), fetchers)

	require.Len(t, maps, 2)
	assert.Contains(t, maps[0], "aaa")
	assert.Contains(t, maps[1], "bbb")
}

func TestFetchQueueMapsDegradesOnFailure(t *testing.T) {
	t.Parallel()

	fetchers := []QueueFetcher{
		&stubFetcher{name: "sonarr", err: errors.New("connection refused")},
		&stubFetcher{name: "radarr", records: []arr.QueueRecord{{ID: 2, DownloadID: "bbb"}}},
	}

	maps := fetchQueueMaps(context.Background(), fetchers)

	require.Len(t, maps, 2)
	assert.Empty(t, maps[0])
	assert.Contains(t, maps[1], "bbb")
}

func TestFetchQueueMapsNoFetchers(t *testing.T) {
	t.Parallel()

	maps := fetchQueueMaps(context.Background(), nil)
	assert.Empty(t, maps)
}
