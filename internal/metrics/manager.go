// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Manager owns the Prometheus registry and the cleaner counters.
type Manager struct {
	registry *prometheus.Registry

	cyclesTotal   *prometheus.CounterVec
	strikesTotal  *prometheus.CounterVec
	removalsTotal *prometheus.CounterVec
	buildInfo     *prometheus.GaugeVec
}

// Cycle outcomes.
const (
	CycleOutcomeCompleted = "completed"
	CycleOutcomeAborted   = "aborted"
)

// Removal routes.
const (
	RemovalRouteArr    = "arr"
	RemovalRouteClient = "client"
	RemovalRouteTag    = "tag"
	RemovalRouteDryRun = "dry-run"
)

func NewManager(version string) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeparr_cleaner_cycles_total",
			Help: "Cleaner cycles by outcome",
		}, []string{"outcome"}),
		strikesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeparr_cleaner_strikes_total",
			Help: "Strikes recorded by rule",
		}, []string{"rule"}),
		removalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeparr_cleaner_removals_total",
			Help: "Removal actions dispatched by route",
		}, []string{"route"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sweeparr_build_info",
			Help: "Build information",
		}, []string{"version"}),
	}

	registry.MustRegister(m.cyclesTotal, m.strikesTotal, m.removalsTotal, m.buildInfo)
	m.buildInfo.WithLabelValues(version).Set(1)

	log.Info().Msg("Metrics manager initialized")

	return m
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordCycle counts a finished cleaner cycle.
func (m *Manager) RecordCycle(outcome string) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordStrike counts one recorded strike, labeled by the rule that
// matched. Rule names are a small fixed set; the free-form reason strings
// would blow up label cardinality.
func (m *Manager) RecordStrike(rule string) {
	if m == nil {
		return
	}
	m.strikesTotal.WithLabelValues(rule).Inc()
}

// RecordRemoval counts one dispatched removal action.
func (m *Manager) RecordRemoval(route string) {
	if m == nil {
		return
	}
	m.removalsTotal.WithLabelValues(route).Inc()
}
