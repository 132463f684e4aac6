// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestManagerCounters(t *testing.T) {
	t.Parallel()

	m := NewManager("test")

	m.RecordCycle(CycleOutcomeCompleted)
	m.RecordCycle(CycleOutcomeCompleted)
	m.RecordCycle(CycleOutcomeAborted)
	m.RecordStrike("stalled")
	m.RecordRemoval(RemovalRouteArr)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cyclesTotal.WithLabelValues(CycleOutcomeCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cyclesTotal.WithLabelValues(CycleOutcomeAborted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.strikesTotal.WithLabelValues("stalled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.removalsTotal.WithLabelValues(RemovalRouteArr)))
}

func TestNilManagerIsNoOp(t *testing.T) {
	t.Parallel()

	var m *Manager

	// Telemetry is optional; a nil manager must absorb every call.
	m.RecordCycle(CycleOutcomeCompleted)
	m.RecordStrike("stalled")
	m.RecordRemoval(RemovalRouteDryRun)
}
