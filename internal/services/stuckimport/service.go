// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stuckimport nudges content managers whose queues hold finished
// downloads that never made it into the library. It first asks the manager
// to rescan its download folder; entries that stay stuck past a retention
// window are dropped from the queue without blocklisting, leaving the files
// on disk for manual handling.
package stuckimport

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeparr/sweeparr/internal/arr"
	"github.com/sweeparr/sweeparr/internal/buildinfo"
	"github.com/sweeparr/sweeparr/internal/domain"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultRetention = 3 * time.Hour

	queuePageSize = 1000
)

// ConfigProvider hands out consistent configuration snapshots.
type ConfigProvider interface {
	Snapshot() domain.Config
}

// ArrClient is one content-manager instance as the reconciler sees it.
type ArrClient interface {
	Name() string
	Type() domain.ArrType
	GetQueue(ctx context.Context, page, pageSize int) (*arr.QueueResponse, error)
	DeleteQueueItem(ctx context.Context, id int64, removeFromClient, blocklist bool) error
	RunCommand(ctx context.Context, name string, params map[string]any) error
}

// Service runs the periodic stuck-import reconciliation.
type Service struct {
	configProvider ConfigProvider

	runMu sync.Mutex

	now func() time.Time

	// Provider for testing (nil = build real Arr clients from config)
	arrClientsProvider func(cfg domain.Config) []ArrClient
}

func NewService(configProvider ConfigProvider) *Service {
	return &Service{
		configProvider: configProvider,
		now:            time.Now,
	}
}

// Start keeps reconciling until the context is canceled. The interval is
// re-read from configuration after every pass.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("stuck-import reconciler started")

	s.RunCycle(ctx)

	timer := time.NewTimer(s.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stuck-import reconciler stopped")
			return
		case <-timer.C:
			s.RunCycle(ctx)
			timer.Reset(s.interval())
		}
	}
}

func (s *Service) interval() time.Duration {
	cfg := s.configProvider.Snapshot()
	if cfg.StuckImport.IntervalMinutes <= 0 {
		return defaultInterval
	}
	return time.Duration(cfg.StuckImport.IntervalMinutes) * time.Minute
}

// RunCycle inspects every enabled instance's queue once. Overlapping
// invocations are coalesced.
func (s *Service) RunCycle(ctx context.Context) {
	if !s.runMu.TryLock() {
		log.Warn().Msg("previous stuck-import pass still running, skipping this one")
		return
	}
	defer s.runMu.Unlock()

	cfg := s.configProvider.Snapshot()
	if !cfg.StuckImport.Enabled {
		log.Debug().Msg("stuck-import reconciler is disabled, skipping pass")
		return
	}

	retention := time.Duration(cfg.StuckImport.RetentionMinutes) * time.Minute
	if retention <= 0 {
		retention = defaultRetention
	}

	for _, client := range s.arrClients(cfg) {
		s.reconcileInstance(ctx, client, retention, cfg.DryRun)
	}
}

// reconcileInstance handles one manager: one rescan command per pass when
// anything is stuck, plus retention deletes for entries that outstayed it.
func (s *Service) reconcileInstance(ctx context.Context, client ArrClient, retention time.Duration, dryRun bool) {
	resp, err := client.GetQueue(ctx, 1, queuePageSize)
	if err != nil {
		log.Warn().Err(err).Str("instance", client.Name()).Msg("failed to fetch queue, skipping instance this pass")
		return
	}

	var stuck []arr.QueueRecord
	for _, record := range resp.Records {
		if isStuck(record) {
			stuck = append(stuck, record)
		}
	}
	if len(stuck) == 0 {
		return
	}

	log.Info().
		Str("instance", client.Name()).
		Int("stuck", len(stuck)).
		Msg("queue entries stuck waiting for import")

	s.triggerRescan(ctx, client, dryRun)

	now := s.now()
	for _, record := range stuck {
		if record.Added.IsZero() || now.Sub(record.Added) <= retention {
			continue
		}
		s.dropEntry(ctx, client, record, dryRun)
	}
}

func (s *Service) triggerRescan(ctx context.Context, client ArrClient, dryRun bool) {
	command := scanCommand(client.Type())
	if command == "" {
		return
	}

	if dryRun {
		log.Warn().
			Str("instance", client.Name()).
			Str("command", command).
			Msg("DRY RUN: would trigger downloaded-folder rescan")
		return
	}

	if err := client.RunCommand(ctx, command, nil); err != nil {
		log.Error().Err(err).
			Str("instance", client.Name()).
			Str("command", command).
			Msg("failed to trigger downloaded-folder rescan")
		return
	}
	log.Info().
		Str("instance", client.Name()).
		Str("command", command).
		Msg("triggered downloaded-folder rescan")
}

// dropEntry removes a queue entry past retention without blocklisting and
// without touching the download client, so the files stay for manual import.
func (s *Service) dropEntry(ctx context.Context, client ArrClient, record arr.QueueRecord, dryRun bool) {
	if dryRun {
		log.Warn().
			Str("instance", client.Name()).
			Int64("queueID", record.ID).
			Str("title", record.Title).
			Msg("DRY RUN: would drop stuck queue entry past retention")
		return
	}

	if err := client.DeleteQueueItem(ctx, record.ID, false, false); err != nil {
		log.Error().Err(err).
			Str("instance", client.Name()).
			Int64("queueID", record.ID).
			Str("title", record.Title).
			Msg("failed to drop stuck queue entry")
		return
	}
	log.Info().
		Str("instance", client.Name()).
		Str("title", record.Title).
		Msg("dropped stuck queue entry past retention, files left in place")
}

// isStuck reports whether a queue entry finished downloading but is parked
// waiting for import.
func isStuck(record arr.QueueRecord) bool {
	state := strings.ToLower(record.TrackedDownloadState)
	if state == "importpending" || state == "importblocked" {
		return true
	}
	return strings.EqualFold(record.Status, "completed") &&
		strings.EqualFold(record.TrackedDownloadStatus, "warning")
}

// scanCommand maps an instance type to its downloaded-folder scan command.
// Lidarr has no equivalent, so those instances only get retention handling.
func scanCommand(arrType domain.ArrType) string {
	switch arrType {
	case domain.ArrTypeSonarr:
		return "DownloadedEpisodesScan"
	case domain.ArrTypeRadarr:
		return "DownloadedMoviesScan"
	default:
		return ""
	}
}

func (s *Service) arrClients(cfg domain.Config) []ArrClient {
	if s.arrClientsProvider != nil {
		return s.arrClientsProvider(cfg)
	}

	enabled := cfg.EnabledArrs()
	clients := make([]ArrClient, 0, len(enabled))
	for _, instance := range enabled {
		arrType, err := domain.ParseArrType(instance.Type)
		if err != nil {
			log.Error().Err(err).Str("instance", instance.Name).Msg("skipping instance with invalid type")
			continue
		}
		clients = append(clients, arr.NewClient(arr.Config{
			Name:      instance.Name,
			Type:      arrType,
			BaseURL:   instance.URL,
			APIKey:    instance.APIKey,
			Timeout:   instance.TimeoutSeconds,
			UserAgent: buildinfo.UserAgent,
		}))
	}
	return clients
}
