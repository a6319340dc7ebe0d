// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package extract

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("partsignal/parts/extract")

var (
	extractionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "extract",
		Name:      "extractions_total",
		Help:      "Entity extractions by method (llm, rules) and outcome.",
	}, []string{"method", "status"})

	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parts",
		Subsystem: "extract",
		Name:      "extraction_duration_seconds",
		Help:      "Entity extraction latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// recordExtraction records one extraction attempt. A zero duration skips
// the histogram (the rules path is effectively instant).
func recordExtraction(method, status string, d time.Duration) {
	extractionTotal.WithLabelValues(method, status).Inc()
	if d > 0 {
		extractionDuration.WithLabelValues(method).Observe(d.Seconds())
	}
}
