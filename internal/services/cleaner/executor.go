// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sweeparr/sweeparr/internal/metrics"
)

// QueueRemover is the slice of the Arr client the executor consumes.
type QueueRemover interface {
	Name() string
	DeleteQueueItem(ctx context.Context, id int64, removeFromClient, blocklist bool) error
}

// TorrentCommander is the slice of the download client the executor
// consumes for the orphan path.
type TorrentCommander interface {
	DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error
	AddTag(ctx context.Context, hashes []string, tag string) error
	SupportsSetTags() bool
}

// Executor performs the destructive half of the cleaner: queue deletions
// through the owning content manager and direct client deletions or tagging
// for orphans. Every path honors dry-run and reports failures without
// propagating them, so one failed removal never aborts the cycle.
type Executor struct {
	client  TorrentCommander
	metrics *metrics.Manager
}

func NewExecutor(client TorrentCommander, metricsManager *metrics.Manager) *Executor {
	return &Executor{
		client:  client,
		metrics: metricsManager,
	}
}

// RemoveViaArr deletes a queue entry through its owning content manager,
// removing the download from the client and blocklisting the release so it
// is not grabbed again. Preferred over direct deletion because the manager
// tracks provenance and blocklists the exact release.
func (e *Executor) RemoveViaArr(ctx context.Context, owner QueueRemover, queueID int64, title, reason string, dryRun bool) {
	if dryRun {
		log.Warn().
			Str("instance", owner.Name()).
			Int64("queueID", queueID).
			Str("title", title).
			Str("reason", reason).
			Msg("DRY RUN: would delete queue entry and blocklist release")
		e.metrics.RecordRemoval(metrics.RemovalRouteDryRun)
		return
	}

	if err := owner.DeleteQueueItem(ctx, queueID, true, true); err != nil {
		log.Error().Err(err).
			Str("instance", owner.Name()).
			Int64("queueID", queueID).
			Str("title", title).
			Msg("failed to delete queue entry")
		return
	}

	log.Info().
		Str("instance", owner.Name()).
		Str("title", title).
		Str("reason", reason).
		Msg("deleted queue entry and blocklisted release")
	e.metrics.RecordRemoval(metrics.RemovalRouteArr)
}

// RemoveOrphan handles a torrent no content manager owns. Private-tracker
// torrents are tagged instead of deleted so the operator can manage
// retention without taking a ratio hit; everything else is deleted together
// with its files.
func (e *Executor) RemoveOrphan(ctx context.Context, hash, name, reason string, isPrivate bool, policy Policy) {
	if isPrivate {
		e.tagObsolete(ctx, hash, name, reason, policy)
		return
	}

	if policy.DryRun {
		log.Warn().
			Str("hash", hash).
			Str("name", name).
			Str("reason", reason).
			Msg("DRY RUN: would delete orphan torrent and its files")
		e.metrics.RecordRemoval(metrics.RemovalRouteDryRun)
		return
	}

	if err := e.client.DeleteTorrents(ctx, []string{hash}, true); err != nil {
		log.Error().Err(err).
			Str("hash", hash).
			Str("name", name).
			Msg("failed to delete orphan torrent")
		return
	}

	log.Info().
		Str("hash", hash).
		Str("name", name).
		Str("reason", reason).
		Msg("deleted orphan torrent and its files")
	e.metrics.RecordRemoval(metrics.RemovalRouteClient)
}

func (e *Executor) tagObsolete(ctx context.Context, hash, name, reason string, policy Policy) {
	if policy.ObsoleteTag == "" {
		log.Warn().
			Str("hash", hash).
			Str("name", name).
			Msg("private orphan reached max strikes but no obsolete tag is configured, leaving it alone")
		return
	}

	if !e.client.SupportsSetTags() {
		log.Warn().
			Str("hash", hash).
			Str("name", name).
			Str("tag", policy.ObsoleteTag).
			Msg("private orphan reached max strikes but the WebAPI is too old for tag management, leaving it alone")
		return
	}

	if policy.DryRun {
		log.Warn().
			Str("hash", hash).
			Str("name", name).
			Str("tag", policy.ObsoleteTag).
			Str("reason", reason).
			Msg("DRY RUN: would tag private orphan torrent as obsolete")
		e.metrics.RecordRemoval(metrics.RemovalRouteDryRun)
		return
	}

	if err := e.client.AddTag(ctx, []string{hash}, policy.ObsoleteTag); err != nil {
		log.Error().Err(err).
			Str("hash", hash).
			Str("name", name).
			Str("tag", policy.ObsoleteTag).
			Msg("failed to tag private orphan torrent")
		return
	}

	log.Info().
		Str("hash", hash).
		Str("name", name).
		Str("tag", policy.ObsoleteTag).
		Str("reason", reason).
		Msg("tagged private orphan torrent as obsolete")
	e.metrics.RecordRemoval(metrics.RemovalRouteTag)
}
