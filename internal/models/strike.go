// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sweeparr/sweeparr/internal/dbinterface"
)

// StrikeRecord is one ledger row: a torrent that was unhealthy on at least
// one recent cleaner cycle. A row exists only while the count is above zero;
// clearing deletes the row outright.
type StrikeRecord struct {
	Hash        string    `json:"hash"`
	Strikes     int       `json:"strikes"`
	LastChecked time.Time `json:"lastChecked"`
	Reason      string    `json:"reason"`
}

// StrikeStore manages the strike ledger in the database.
type StrikeStore struct {
	db  dbinterface.Querier
	now func() time.Time
}

func NewStrikeStore(db dbinterface.Querier) *StrikeStore {
	return &StrikeStore{
		db:  db,
		now: time.Now,
	}
}

// RecordStrike inserts a count of 1 for an unseen hash or increments the
// existing count, refreshing the timestamp and reason either way. Returns
// the resulting count. The upsert is a single statement so concurrent
// callers striking different hashes never interleave partial writes.
func (s *StrikeStore) RecordStrike(ctx context.Context, hash, reason string) (int, error) {
	hash = normalizeHash(hash)
	if hash == "" {
		return 0, errors.New("empty torrent hash")
	}

	var strikes int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO torrent_strikes (hash, strikes, last_checked, reason)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			strikes = strikes + 1,
			last_checked = excluded.last_checked,
			reason = excluded.reason
		RETURNING strikes`,
		hash, s.now().UTC(), reason,
	).Scan(&strikes)
	if err != nil {
		return 0, err
	}

	return strikes, nil
}

// GetStrikes returns the current count for a hash, 0 if no row exists.
func (s *StrikeStore) GetStrikes(ctx context.Context, hash string) (int, error) {
	var strikes int
	err := s.db.QueryRowContext(ctx,
		"SELECT strikes FROM torrent_strikes WHERE hash = ?",
		normalizeHash(hash),
	).Scan(&strikes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strikes, nil
}

// ClearStrikes deletes the ledger row for a hash. Clearing a hash that has
// no row is a no-op.
func (s *StrikeStore) ClearStrikes(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM torrent_strikes WHERE hash = ?",
		normalizeHash(hash),
	)
	return err
}

// List returns all current ledger rows, most recently checked first.
func (s *StrikeStore) List(ctx context.Context) ([]StrikeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, strikes, last_checked, reason
		FROM torrent_strikes
		ORDER BY last_checked DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StrikeRecord
	for rows.Next() {
		var record StrikeRecord
		if err := rows.Scan(&record.Hash, &record.Strikes, &record.LastChecked, &record.Reason); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// normalizeHash lowercases torrent hashes so ledger keys always match the
// download client's identifiers regardless of which system reported them.
func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
