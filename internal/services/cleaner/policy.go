// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"strings"
	"time"

	"github.com/sweeparr/sweeparr/internal/domain"
)

// Defaults applied when a configured value is zero or negative. Matches the
// behavior of treating a zeroed timer as "use the stock value" rather than
// hammering the rule every cycle.
const (
	defaultMaxStrikes      = 3
	defaultMetadataTimeout = 15 * time.Minute
	defaultStalledTimeout  = 15 * time.Minute
	defaultMinSpeedKiB     = 100
	defaultInterval        = 20 * time.Minute
)

// slowGracePeriod is how long a torrent may download before the slow rule
// applies at all. Fixed on purpose: fresh torrents always ramp up slowly.
const slowGracePeriod = 5 * time.Minute

// Policy is the immutable per-cycle snapshot of every setting the cleaner
// consults. One Policy is derived at cycle start so all decisions within
// the cycle see consistent configuration.
type Policy struct {
	DryRun     bool
	MaxStrikes int

	RemoveMetadataMissing bool
	RemoveStalled         bool
	RemoveSlow            bool
	RemoveFailed          bool
	RemoveOrphans         bool

	MetadataTimeout time.Duration
	StalledTimeout  time.Duration
	MinSpeedBytes   int64

	ProtectedTags      []string
	PrivateTrackerTags []string
	ObsoleteTag        string
}

// PolicyFromConfig derives a Policy from a configuration snapshot,
// substituting defaults for nonpositive thresholds.
func PolicyFromConfig(cfg domain.Config) Policy {
	c := cfg.Cleaner

	maxStrikes := c.MaxStrikes
	if maxStrikes <= 0 {
		maxStrikes = defaultMaxStrikes
	}

	metadataTimeout := time.Duration(c.MetadataTimeoutMinutes) * time.Minute
	if metadataTimeout <= 0 {
		metadataTimeout = defaultMetadataTimeout
	}

	stalledTimeout := time.Duration(c.StalledTimeoutMinutes) * time.Minute
	if stalledTimeout <= 0 {
		stalledTimeout = defaultStalledTimeout
	}

	minSpeedKiB := c.MinSpeedKiB
	if minSpeedKiB <= 0 {
		minSpeedKiB = defaultMinSpeedKiB
	}

	return Policy{
		DryRun:                cfg.DryRun,
		MaxStrikes:            maxStrikes,
		RemoveMetadataMissing: c.RemoveMetadataMissing,
		RemoveStalled:         c.RemoveStalled,
		RemoveSlow:            c.RemoveSlow,
		RemoveFailed:          c.RemoveFailed,
		RemoveOrphans:         c.RemoveOrphans,
		MetadataTimeout:       metadataTimeout,
		StalledTimeout:        stalledTimeout,
		MinSpeedBytes:         int64(minSpeedKiB) * 1024,
		ProtectedTags:         normalizeTags(c.ProtectedTags),
		PrivateTrackerTags:    normalizeTags(c.PrivateTrackerTags),
		ObsoleteTag:           strings.TrimSpace(c.ObsoleteTag),
	}
}

// Interval returns the cycle cadence, defaulting when unset.
func Interval(cfg domain.Config) time.Duration {
	if cfg.Cleaner.IntervalMinutes <= 0 {
		return defaultInterval
	}
	return time.Duration(cfg.Cleaner.IntervalMinutes) * time.Minute
}

func normalizeTags(tags []string) []string {
	var cleaned []string
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// splitTags parses qBittorrent's comma-separated tag string.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var cleaned []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// hasAnyTag reports whether any torrent tag matches the normalized set,
// case-insensitively.
func hasAnyTag(torrentTags []string, set []string) bool {
	for _, tag := range torrentTags {
		for _, candidate := range set {
			if strings.EqualFold(tag, candidate) {
				return true
			}
		}
	}
	return false
}
