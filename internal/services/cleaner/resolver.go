// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sweeparr/sweeparr/internal/arr"
)

// queuePageSize bounds one queue fetch; content-manager queues realistically
// stay far below this.
const queuePageSize = 1000

// QueueOwner is the part of a queue entry the cleaner needs: the id used
// for deletion calls and a title for the logs.
type QueueOwner struct {
	QueueID int64
	Title   string
}

// QueueMap maps lowercased torrent hashes to the owning queue entry of one
// content manager.
type QueueMap map[string]QueueOwner

// QueueFetcher is the slice of the Arr client the resolver consumes.
type QueueFetcher interface {
	Name() string
	GetQueue(ctx context.Context, page, pageSize int) (*arr.QueueResponse, error)
}

// fetchQueueMaps loads every enabled instance's queue concurrently. A
// failing instance degrades to an empty map so one manager being down never
// blocks evaluation of torrents owned by the others. The result slice is
// ordered like the input, which is the ownership precedence order.
func fetchQueueMaps(ctx context.Context, fetchers []QueueFetcher) []QueueMap {
	maps := make([]QueueMap, len(fetchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, fetcher := range fetchers {
		g.Go(func() error {
			resp, err := fetcher.GetQueue(gctx, 1, queuePageSize)
			if err != nil {
				log.Warn().Err(err).Str("instance", fetcher.Name()).
					Msg("failed to fetch queue, treating all its torrents as unowned this cycle")
				maps[i] = QueueMap{}
				return nil
			}
			maps[i] = BuildQueueMap(resp.Records)
			return nil
		})
	}
	// Workers never return errors; they degrade instead.
	_ = g.Wait()

	return maps
}

// BuildQueueMap indexes queue records by lowercased download id. Content
// managers commonly report hashes uppercased while qBittorrent reports them
// lowercased; lowercasing both sides makes ownership checks case-insensitive.
func BuildQueueMap(records []arr.QueueRecord) QueueMap {
	m := make(QueueMap, len(records))
	for _, record := range records {
		hash := strings.ToLower(strings.TrimSpace(record.DownloadID))
		if hash == "" {
			continue
		}
		title := record.Title
		if title == "" {
			title = "Unknown"
		}
		m[hash] = QueueOwner{QueueID: record.ID, Title: title}
	}
	return m
}
