// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sweeparr/sweeparr/internal/domain"
)

func TestPolicyFromConfigDefaults(t *testing.T) {
	t.Parallel()

	policy := PolicyFromConfig(domain.Config{})

	assert.Equal(t, 3, policy.MaxStrikes)
	assert.Equal(t, 15*time.Minute, policy.MetadataTimeout)
	assert.Equal(t, 15*time.Minute, policy.StalledTimeout)
	assert.Equal(t, int64(100*1024), policy.MinSpeedBytes)
}

func TestPolicyFromConfigNegativeValuesFallBack(t *testing.T) {
	t.Parallel()

	cfg := domain.Config{}
	cfg.Cleaner.MaxStrikes = -1
	cfg.Cleaner.MetadataTimeoutMinutes = -5
	cfg.Cleaner.StalledTimeoutMinutes = 0
	cfg.Cleaner.MinSpeedKiB = -100

	policy := PolicyFromConfig(cfg)

	assert.Equal(t, 3, policy.MaxStrikes)
	assert.Equal(t, 15*time.Minute, policy.MetadataTimeout)
	assert.Equal(t, 15*time.Minute, policy.StalledTimeout)
	assert.Equal(t, int64(100*1024), policy.MinSpeedBytes)
}

func TestPolicyFromConfigHonorsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := domain.Config{DryRun: true}
	cfg.Cleaner.MaxStrikes = 5
	cfg.Cleaner.MetadataTimeoutMinutes = 30
	cfg.Cleaner.StalledTimeoutMinutes = 45
	cfg.Cleaner.MinSpeedKiB = 250
	cfg.Cleaner.ProtectedTags = []string{" Keep ", "", "seasonal"}
	cfg.Cleaner.ObsoleteTag = "  sweeparr-obsolete  "

	policy := PolicyFromConfig(cfg)

	assert.True(t, policy.DryRun)
	assert.Equal(t, 5, policy.MaxStrikes)
	assert.Equal(t, 30*time.Minute, policy.MetadataTimeout)
	assert.Equal(t, 45*time.Minute, policy.StalledTimeout)
	assert.Equal(t, int64(250*1024), policy.MinSpeedBytes)
	assert.Equal(t, []string{"keep", "seasonal"}, policy.ProtectedTags)
	assert.Equal(t, "sweeparr-obsolete", policy.ObsoleteTag)
}

func TestInterval(t *testing.T) {
	t.Parallel()

	cfg := domain.Config{}
	assert.Equal(t, 20*time.Minute, Interval(cfg))

	cfg.Cleaner.IntervalMinutes = 5
	assert.Equal(t, 5*time.Minute, Interval(cfg))
}

func TestSplitTags(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"tv", "private"}, splitTags("tv, private"))
	assert.Equal(t, []string{"solo"}, splitTags("solo"))
	assert.Equal(t, []string{"a", "b"}, splitTags(" a ,, b ,"))
}

func TestHasAnyTag(t *testing.T) {
	t.Parallel()

	tags := []string{"TV", "Private-Tracker"}
	assert.True(t, hasAnyTag(tags, []string{"private-tracker"}))
	assert.False(t, hasAnyTag(tags, []string{"movies"}))
	assert.False(t, hasAnyTag(nil, []string{"tv"}))
	assert.False(t, hasAnyTag(tags, nil))
}
