// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package z2

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("partsignal/parts/z2")

var (
	gatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "z2",
		Name:      "gateway_calls_total",
		Help:      "Z2Data gateway calls by endpoint and outcome.",
	}, []string{"endpoint", "status"})

	gatewayCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parts",
		Subsystem: "z2",
		Name:      "gateway_call_duration_seconds",
		Help:      "Z2Data gateway call latency by endpoint.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint"})

	validationFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "z2",
		Name:      "validation_fallback_total",
		Help:      "Part validation retries using the verbatim manufacturer, by outcome.",
	}, []string{"status"})
)

// recordGatewayCall records one gateway round trip.
func recordGatewayCall(endpoint, status string, d time.Duration) {
	gatewayCallsTotal.WithLabelValues(endpoint, status).Inc()
	gatewayCallDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
