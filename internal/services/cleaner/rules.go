// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"fmt"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
)

// Verdict is the outcome of classifying one torrent: which rule matched and
// the operator-facing reason string that ends up in the ledger and the logs.
type Verdict struct {
	Rule   string
	Reason string
}

// healthRule couples a rule name with its predicate. The predicate returns
// the strike reason when the rule matches.
type healthRule struct {
	name     string
	evaluate func(torrent qbt.Torrent, elapsed time.Duration, policy Policy) (string, bool)
}

// healthRules is evaluated in order with first match winning. The order is
// part of the engine's contract: reordering changes classification for
// torrents whose state could satisfy more than one rule, so it is a
// first-class artifact covered by tests rather than buried control flow.
var healthRules = []healthRule{
	{
		name: "metadata-missing",
		evaluate: func(torrent qbt.Torrent, elapsed time.Duration, policy Policy) (string, bool) {
			if !policy.RemoveMetadataMissing {
				return "", false
			}
			if torrent.State != qbt.TorrentStateMetaDl {
				return "", false
			}
			if elapsed <= policy.MetadataTimeout {
				return "", false
			}
			return "Stuck Downloading Metadata", true
		},
	},
	{
		name: "stalled",
		evaluate: func(torrent qbt.Torrent, elapsed time.Duration, policy Policy) (string, bool) {
			if !policy.RemoveStalled {
				return "", false
			}
			if torrent.State != qbt.TorrentStateStalledDl {
				return "", false
			}
			if elapsed <= policy.StalledTimeout {
				return "", false
			}
			return "Stalled (No Seeds)", true
		},
	},
	{
		name: "slow",
		evaluate: func(torrent qbt.Torrent, elapsed time.Duration, policy Policy) (string, bool) {
			if !policy.RemoveSlow {
				return "", false
			}
			if torrent.State != qbt.TorrentStateDownloading {
				return "", false
			}
			if elapsed <= slowGracePeriod {
				return "", false
			}
			if torrent.DlSpeed >= policy.MinSpeedBytes {
				return "", false
			}
			return fmt.Sprintf("Downloading too slowly (%d KiB/s < %d KiB/s)",
				torrent.DlSpeed/1024, policy.MinSpeedBytes/1024), true
		},
	},
	{
		name: "failed",
		evaluate: func(torrent qbt.Torrent, elapsed time.Duration, policy Policy) (string, bool) {
			if !policy.RemoveFailed {
				return "", false
			}
			if torrent.State != qbt.TorrentStateError && torrent.State != qbt.TorrentStateMissingFiles {
				return "", false
			}
			return "Critical Error State", true
		},
	},
}

// Classify runs the ordered rule list against one torrent. It is a pure
// function of the torrent snapshot, the current time and the policy;
// protected-tag and orphan exemptions are handled by the caller before it
// is invoked. The second return is false when the torrent is healthy.
func Classify(torrent qbt.Torrent, now time.Time, policy Policy) (Verdict, bool) {
	elapsed := now.Sub(time.Unix(torrent.AddedOn, 0))

	for _, rule := range healthRules {
		if reason, ok := rule.evaluate(torrent, elapsed, policy); ok {
			return Verdict{Rule: rule.name, Reason: reason}, true
		}
	}
	return Verdict{}, false
}
