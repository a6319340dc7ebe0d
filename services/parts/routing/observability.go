// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// =============================================================================
// OTel Tracer
// =============================================================================

var tracer = otel.Tracer("partsignal/parts/routing")

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "routing",
		Name:      "dispatch_total",
		Help:      "Total dispatches by tier, tool, and outcome",
	}, []string{"tier", "tool", "outcome"})

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parts",
		Subsystem: "routing",
		Name:      "dispatch_duration_seconds",
		Help:      "End-to-end dispatch latency including gateway calls",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	scoreLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parts",
		Subsystem: "routing",
		Name:      "score_latency_seconds",
		Help:      "Tool scoring latency",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	tier2RuleFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "routing",
		Name:      "tier2_rule_fired_total",
		Help:      "Total Tier-2 decision rules fired by rule name",
	}, []string{"rule"})
)
