// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stuckimport

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeparr/sweeparr/internal/arr"
	"github.com/sweeparr/sweeparr/internal/domain"
)

type stubConfigProvider struct {
	cfg domain.Config
}

func (p *stubConfigProvider) Snapshot() domain.Config { return p.cfg }

type deleteCall struct {
	id               int64
	removeFromClient bool
	blocklist        bool
}

type stubArrClient struct {
	name    string
	arrType domain.ArrType

	records  []arr.QueueRecord
	queueErr error

	commands    []string
	commandErr  error
	deleteCalls []deleteCall
}

func (c *stubArrClient) Name() string         { return c.name }
func (c *stubArrClient) Type() domain.ArrType { return c.arrType }

func (c *stubArrClient) GetQueue(_ context.Context, _, _ int) (*arr.QueueResponse, error) {
	if c.queueErr != nil {
		return nil, c.queueErr
	}
	return &arr.QueueResponse{Records: c.records, TotalRecords: len(c.records)}, nil
}

func (c *stubArrClient) DeleteQueueItem(_ context.Context, id int64, removeFromClient, blocklist bool) error {
	c.deleteCalls = append(c.deleteCalls, deleteCall{id: id, removeFromClient: removeFromClient, blocklist: blocklist})
	return nil
}

func (c *stubArrClient) RunCommand(_ context.Context, name string, _ map[string]any) error {
	c.commands = append(c.commands, name)
	return c.commandErr
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func baseConfig() domain.Config {
	cfg := domain.Config{}
	cfg.StuckImport.Enabled = true
	cfg.StuckImport.IntervalMinutes = 10
	cfg.StuckImport.RetentionMinutes = 180
	return cfg
}

func newTestService(cfg domain.Config, clients ...*stubArrClient) *Service {
	svc := NewService(&stubConfigProvider{cfg: cfg})
	svc.now = func() time.Time { return testNow }
	svc.arrClientsProvider = func(domain.Config) []ArrClient {
		out := make([]ArrClient, len(clients))
		for i, c := range clients {
			out[i] = c
		}
		return out
	}
	return svc
}

func stuckRecord(id int64, age time.Duration) arr.QueueRecord {
	return arr.QueueRecord{
		ID:                   id,
		Title:                "Show S01E01",
		Status:               "completed",
		TrackedDownloadState: "importPending",
		Added:                testNow.Add(-age),
	}
}

func TestIsStuck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record arr.QueueRecord
		want   bool
	}{
		{
			name:   "import pending",
			record: arr.QueueRecord{TrackedDownloadState: "importPending"},
			want:   true,
		},
		{
			name:   "import blocked",
			record: arr.QueueRecord{TrackedDownloadState: "importBlocked"},
			want:   true,
		},
		{
			name:   "completed with warning",
			record: arr.QueueRecord{Status: "completed", TrackedDownloadStatus: "warning"},
			want:   true,
		},
		{
			name:   "still downloading",
			record: arr.QueueRecord{Status: "downloading", TrackedDownloadState: "downloading"},
			want:   false,
		},
		{
			name:   "completed and healthy",
			record: arr.QueueRecord{Status: "completed", TrackedDownloadStatus: "ok"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isStuck(tt.record))
		})
	}
}

func TestRescanCommandPerInstanceType(t *testing.T) {
	t.Parallel()

	sonarr := &stubArrClient{name: "sonarr", arrType: domain.ArrTypeSonarr, records: []arr.QueueRecord{stuckRecord(1, time.Minute)}}
	radarr := &stubArrClient{name: "radarr", arrType: domain.ArrTypeRadarr, records: []arr.QueueRecord{stuckRecord(2, time.Minute)}}
	lidarr := &stubArrClient{name: "lidarr", arrType: domain.ArrTypeLidarr, records: []arr.QueueRecord{stuckRecord(3, time.Minute)}}
	svc := newTestService(baseConfig(), sonarr, radarr, lidarr)

	svc.RunCycle(context.Background())

	assert.Equal(t, []string{"DownloadedEpisodesScan"}, sonarr.commands)
	assert.Equal(t, []string{"DownloadedMoviesScan"}, radarr.commands)
	assert.Empty(t, lidarr.commands, "lidarr has no downloaded-folder scan command")
}

func TestRescanIssuedAtMostOncePerPass(t *testing.T) {
	t.Parallel()

	sonarr := &stubArrClient{
		name:    "sonarr",
		arrType: domain.ArrTypeSonarr,
		records: []arr.QueueRecord{stuckRecord(1, time.Minute), stuckRecord(2, time.Minute), stuckRecord(3, time.Minute)},
	}
	svc := newTestService(baseConfig(), sonarr)

	svc.RunCycle(context.Background())

	assert.Len(t, sonarr.commands, 1)
}

func TestRetentionDelete(t *testing.T) {
	t.Parallel()

	sonarr := &stubArrClient{
		name:    "sonarr",
		arrType: domain.ArrTypeSonarr,
		records: []arr.QueueRecord{
			stuckRecord(1, 30*time.Minute),  // inside retention, kept
			stuckRecord(2, 200*time.Minute), // past retention, dropped
		},
	}
	svc := newTestService(baseConfig(), sonarr)

	svc.RunCycle(context.Background())

	require.Len(t, sonarr.deleteCalls, 1)
	assert.Equal(t, int64(2), sonarr.deleteCalls[0].id)
	assert.False(t, sonarr.deleteCalls[0].removeFromClient, "files must stay in the client")
	assert.False(t, sonarr.deleteCalls[0].blocklist, "stuck imports are not the release's fault")
}

func TestRetentionSkipsRecordsWithoutTimestamp(t *testing.T) {
	t.Parallel()

	record := stuckRecord(1, 0)
	record.Added = time.Time{}
	sonarr := &stubArrClient{name: "sonarr", arrType: domain.ArrTypeSonarr, records: []arr.QueueRecord{record}}
	svc := newTestService(baseConfig(), sonarr)

	svc.RunCycle(context.Background())

	assert.Empty(t, sonarr.deleteCalls)
}

func TestDryRunMutatesNothing(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.DryRun = true
	sonarr := &stubArrClient{
		name:    "sonarr",
		arrType: domain.ArrTypeSonarr,
		records: []arr.QueueRecord{stuckRecord(1, 200*time.Minute)},
	}
	svc := newTestService(cfg, sonarr)

	svc.RunCycle(context.Background())

	assert.Empty(t, sonarr.commands)
	assert.Empty(t, sonarr.deleteCalls)
}

func TestDisabledReconcilerDoesNothing(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.StuckImport.Enabled = false
	sonarr := &stubArrClient{name: "sonarr", arrType: domain.ArrTypeSonarr, records: []arr.QueueRecord{stuckRecord(1, time.Minute)}}
	svc := newTestService(cfg, sonarr)

	svc.RunCycle(context.Background())

	assert.Empty(t, sonarr.commands)
	assert.Empty(t, sonarr.deleteCalls)
}

func TestQueueFetchFailureSkipsInstanceOnly(t *testing.T) {
	t.Parallel()

	broken := &stubArrClient{name: "sonarr", arrType: domain.ArrTypeSonarr, queueErr: errors.New("connection refused")}
	healthy := &stubArrClient{name: "radarr", arrType: domain.ArrTypeRadarr, records: []arr.QueueRecord{stuckRecord(1, time.Minute)}}
	svc := newTestService(baseConfig(), broken, healthy)

	svc.RunCycle(context.Background())

	assert.Empty(t, broken.commands)
	assert.Equal(t, []string{"DownloadedMoviesScan"}, healthy.commands)
}
