// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cleaner implements the strike-based health engine: it watches the
// download client's active torrents, strikes the ones that look dead and
// removes them once they have exhausted their strikes.
package cleaner

import (
	"context"
	"strings"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/sweeparr/sweeparr/internal/arr"
	"github.com/sweeparr/sweeparr/internal/buildinfo"
	"github.com/sweeparr/sweeparr/internal/domain"
	"github.com/sweeparr/sweeparr/internal/metrics"
)

// ConfigProvider hands out consistent configuration snapshots. The cleaner
// takes one snapshot per cycle so a live reload mid-cycle cannot mix old
// and new thresholds.
type ConfigProvider interface {
	Snapshot() domain.Config
}

// StrikeLedger is the persistence surface of the engine. Errors from it are
// treated as transient: a broken ledger must never cause a removal.
type StrikeLedger interface {
	RecordStrike(ctx context.Context, hash, reason string) (int, error)
	GetStrikes(ctx context.Context, hash string) (int, error)
	ClearStrikes(ctx context.Context, hash string) error
}

// DownloadClient is the subset of the qBittorrent client the cleaner uses.
type DownloadClient interface {
	TorrentCommander
	HealthCheck(ctx context.Context) error
	ListDownloading(ctx context.Context) ([]qbt.Torrent, error)
}

// ArrClient is one content-manager instance as the cleaner sees it.
type ArrClient interface {
	QueueFetcher
	QueueRemover
}

// Service runs the periodic cleaning cycle.
type Service struct {
	configProvider ConfigProvider
	ledger         StrikeLedger
	client         DownloadClient
	executor       *Executor
	metrics        *metrics.Manager

	// Prevents overlapping cycles when one cycle outlives the interval.
	runMu sync.Mutex

	now func() time.Time

	// Provider for testing (nil = build real Arr clients from config)
	arrClientsProvider func(cfg domain.Config) []ArrClient
}

// NewService creates the cleaner service.
func NewService(configProvider ConfigProvider, ledger StrikeLedger, client DownloadClient, metricsManager *metrics.Manager) *Service {
	return &Service{
		configProvider: configProvider,
		ledger:         ledger,
		client:         client,
		executor:       NewExecutor(client, metricsManager),
		metrics:        metricsManager,
		now:            time.Now,
	}
}

// Start runs one cycle immediately, then keeps cycling until the context is
// canceled. The interval is re-read from configuration after every cycle so
// a live reload takes effect without a restart.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("cleaner service started")

	s.RunCycle(ctx)

	timer := time.NewTimer(Interval(s.configProvider.Snapshot()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cleaner service stopped")
			return
		case <-timer.C:
			s.RunCycle(ctx)
			timer.Reset(Interval(s.configProvider.Snapshot()))
		}
	}
}

// RunCycle performs one full evaluation pass. Overlapping invocations are
// coalesced: if a cycle is already running the call returns immediately.
func (s *Service) RunCycle(ctx context.Context) {
	if !s.runMu.TryLock() {
		log.Warn().Msg("previous cleaning cycle still running, skipping this one")
		return
	}
	defer s.runMu.Unlock()

	cfg := s.configProvider.Snapshot()
	if !cfg.Cleaner.Enabled {
		log.Debug().Msg("cleaner is disabled, skipping cycle")
		return
	}

	policy := PolicyFromConfig(cfg)
	started := s.now()

	if err := s.client.HealthCheck(ctx); err != nil {
		log.Error().Err(err).Msg("download client unreachable, aborting cycle")
		s.metrics.RecordCycle(metrics.CycleOutcomeAborted)
		return
	}

	torrents, err := s.client.ListDownloading(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active torrents, aborting cycle")
		s.metrics.RecordCycle(metrics.CycleOutcomeAborted)
		return
	}

	if len(torrents) == 0 {
		log.Debug().Msg("no active torrents, nothing to do")
		s.metrics.RecordCycle(metrics.CycleOutcomeCompleted)
		return
	}

	clients := s.arrClients(cfg)
	fetchers := make([]QueueFetcher, len(clients))
	for i, client := range clients {
		fetchers[i] = client
	}
	queueMaps := fetchQueueMaps(ctx, fetchers)

	for _, torrent := range torrents {
		s.processTorrent(ctx, torrent, clients, queueMaps, policy)
	}

	log.Info().
		Int("torrents", len(torrents)).
		Dur("elapsed", s.now().Sub(started)).
		Bool("dryRun", policy.DryRun).
		Msg("cleaning cycle completed")
	s.metrics.RecordCycle(metrics.CycleOutcomeCompleted)
}

// processTorrent evaluates one torrent: exemptions first, then ownership,
// then classification, then the strike bookkeeping and any removal.
func (s *Service) processTorrent(ctx context.Context, torrent qbt.Torrent, clients []ArrClient, queueMaps []QueueMap, policy Policy) {
	hash := strings.ToLower(torrent.Hash)
	tags := splitTags(torrent.Tags)

	if hasAnyTag(tags, policy.ProtectedTags) {
		log.Debug().Str("name", torrent.Name).Msg("torrent carries a protected tag, skipping")
		return
	}

	// First instance whose queue contains the hash wins; configuration
	// order is the precedence order.
	ownerIdx := -1
	var owner QueueOwner
	for i, queueMap := range queueMaps {
		if candidate, ok := queueMap[hash]; ok {
			ownerIdx = i
			owner = candidate
			break
		}
	}

	if ownerIdx < 0 && !policy.RemoveOrphans {
		log.Debug().Str("name", torrent.Name).Msg("torrent is unowned and orphan removal is off, skipping")
		return
	}

	verdict, unhealthy := Classify(torrent, s.now(), policy)
	if !unhealthy {
		s.clearOnRecovery(ctx, hash, torrent.Name)
		return
	}

	strikes, err := s.ledger.RecordStrike(ctx, hash, verdict.Reason)
	if err != nil {
		// A broken ledger must never escalate into a removal.
		log.Error().Err(err).Str("name", torrent.Name).Msg("failed to record strike, leaving torrent alone this cycle")
		return
	}
	s.metrics.RecordStrike(verdict.Rule)

	log.Info().
		Str("name", torrent.Name).
		Str("reason", verdict.Reason).
		Int("strikes", strikes).
		Int("maxStrikes", policy.MaxStrikes).
		Msg("torrent struck")

	if strikes < policy.MaxStrikes {
		return
	}

	// Clear before removing so a removal failure leads to a fresh strike
	// count rather than an immediate retry storm against a broken API.
	if err := s.ledger.ClearStrikes(ctx, hash); err != nil {
		log.Error().Err(err).Str("name", torrent.Name).Msg("failed to clear strikes before removal")
	}

	if ownerIdx >= 0 {
		s.executor.RemoveViaArr(ctx, clients[ownerIdx], owner.QueueID, owner.Title, verdict.Reason, policy.DryRun)
		return
	}

	isPrivate := hasAnyTag(tags, policy.PrivateTrackerTags)
	s.executor.RemoveOrphan(ctx, hash, torrent.Name, verdict.Reason, isPrivate, policy)
}

// clearOnRecovery wipes the ledger entry of a torrent that is healthy
// again. Ledger errors are logged and ignored; stale strikes only delay
// recovery detection by a cycle.
func (s *Service) clearOnRecovery(ctx context.Context, hash, name string) {
	strikes, err := s.ledger.GetStrikes(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("failed to read strikes for healthy torrent")
		return
	}
	if strikes == 0 {
		return
	}

	if err := s.ledger.ClearStrikes(ctx, hash); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("failed to clear strikes for recovered torrent")
		return
	}
	log.Info().Str("name", name).Int("strikes", strikes).Msg("torrent recovered, strikes cleared")
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
