// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent wraps the go-qbittorrent client with the connection
// handling the cleaner needs: login with retry, a lightweight health check,
// and the small set of list/delete/tag calls.
package qbittorrent

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/sweeparr/sweeparr/internal/domain"
)

type Client struct {
	*qbt.Client
	webAPIVersion   string
	supportsSetTags bool
}

// NewClient connects to qBittorrent and probes the WebAPI version. Login is
// retried a few times with backoff so a daemon starting alongside the
// download client does not fail on a race.
func NewClient(cfg domain.QBittorrentConfig) (*Client, error) {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	qbtClient := qbt.NewClient(qbt.Config{
		Host:          cfg.Host,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Timeout:       timeout,
		TLSSkipVerify: cfg.TLSSkipVerify,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	err := retry.Do(
		func() error {
			return qbtClient.LoginCtx(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(4),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qBittorrent at %s: %w", cfg.Host, err)
	}

	webAPIVersion, err := qbtClient.GetWebAPIVersionCtx(ctx)
	if err != nil {
		webAPIVersion = ""
	}

	client := &Client{
		Client:          qbtClient,
		webAPIVersion:   webAPIVersion,
		supportsSetTags: webAPIVersionSupportsSetTags(webAPIVersion),
	}

	log.Debug().
		Str("host", cfg.Host).
		Str("webAPIVersion", webAPIVersion).
		Bool("supportsSetTags", client.supportsSetTags).
		Msg("qBittorrent client created successfully")

	return client, nil
}

// webAPIVersionSupportsSetTags reports whether the WebAPI carries tag
// management (added in 2.11.4). An unknown or unparseable version counts
// as too old.
func webAPIVersionSupportsSetTags(version string) bool {
	if version == "" {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return !v.LessThan(semver.MustParse("2.11.4"))
}

// HealthCheck verifies the session is still valid, re-logging-in once if
// the API rejects the first probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.GetWebAPIVersionCtx(ctx)
	if err != nil {
		if loginErr := c.LoginCtx(ctx); loginErr != nil {
			return fmt.Errorf("health check failed: login error: %w", loginErr)
		}
		if _, err = c.GetWebAPIVersionCtx(ctx); err != nil {
			return fmt.Errorf("health check failed: api error: %w", err)
		}
	}
	return nil
}

func (c *Client) GetWebAPIVersion() string {
	return c.webAPIVersion
}

// SupportsSetTags reports whether the connected WebAPI can manage tags.
// The version is probed once at connect time and does not change for the
// lifetime of the session.
func (c *Client) SupportsSetTags() bool {
	return c.supportsSetTags
}

// ListDownloading returns the torrents in the downloading superset, which
// covers every state the cleaner evaluates (downloading, stalled, metaDL,
// error, missingFiles).
func (c *Client) ListDownloading(ctx context.Context) ([]qbt.Torrent, error) {
	return c.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{
		Filter: qbt.TorrentFilterDownloading,
	})
}

// DeleteTorrents removes torrents from the client, optionally with their
// downloaded files.
func (c *Client) DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error {
	return c.DeleteTorrentsCtx(ctx, hashes, deleteFiles)
}

// AddTag applies a tag to the given torrents.
func (c *Client) AddTag(ctx context.Context, hashes []string, tag string) error {
	return c.AddTagsCtx(ctx, hashes, tag)
}
