// Package metrics holds the Prometheus collectors shared by the agent and the chat surfaces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicechat_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoicechat_turn_duration_seconds",
			Help:    "Duration of agent invocations in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"outcome"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicechat_agent_tool_calls_total",
			Help: "Total number of agent tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invoicechat_sessions_active",
			Help: "Number of live chat sessions",
		},
	)
)
