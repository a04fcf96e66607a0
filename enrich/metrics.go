// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniterare_enrich_records_total",
		Help: "Records processed by the enrichment pipeline, by outcome.",
	}, []string{"status"})

	recordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniterare_enrich_failures_total",
		Help: "Per-record failures, by stage.",
	}, []string{"stage"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uniterare_generation_duration_seconds",
		Help:    "Latency of single generator calls.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
	})

	generationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uniterare_generations_in_flight",
		Help: "Generator calls currently waiting for a response.",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniterare_enrich_runs_total",
		Help: "Enrichment runs, by result.",
	}, []string{"result"})
)
