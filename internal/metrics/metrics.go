// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts live sessions by mode ("guest" or "player").
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watertrek_sessions_started_total",
		Help: "Live game sessions started, by mode",
	}, []string{"mode"})

	// SessionOutcomes counts sessions reaching a terminal outcome.
	SessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watertrek_session_outcomes_total",
		Help: "Game sessions finished, by outcome",
	}, []string{"outcome"})

	// Interactions counts appliance touches and whether they were accepted.
	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watertrek_interactions_total",
		Help: "Appliance interactions by appliance and acceptance",
	}, []string{"appliance", "accepted"})

	// StateSaves counts snapshot saves by result.
	StateSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watertrek_state_saves_total",
		Help: "Game state saves by result",
	}, []string{"result"})

	// LimitFetches counts daily limit lookups that missed the cache.
	LimitFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watertrek_limit_fetches_total",
		Help: "Daily limit computations by result",
	}, []string{"result"})

	// ActiveSessions is the number of live sessions held in memory.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watertrek_active_sessions",
		Help: "Live game sessions currently held in memory",
	})
)
