// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover the question-answering pipeline: request counts, per-stage
// latency, intent and resolution-path distributions, and semantic hit
// counts. They are exposed on /metrics for Prometheus + Grafana.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "scholarlink"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for the QA pipeline.
//
// Initialize once at startup via InitMetrics(). A nil receiver is safe on
// every method so tests can run without a registry.
type PipelineMetrics struct {
	// RequestsTotal counts pipeline runs by terminal status.
	// Labels: status (success, candidates, error)
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds measures per-stage latency.
	// Labels: stage (step0_setup, author_resolution, speculative_generation,
	// db_query, semantic_fallback, synthesis, author_discovery, total, ...)
	StageDurationSeconds *prometheus.HistogramVec

	// IntentsTotal counts classified intents after normalization and
	// promotion. Labels: intent
	IntentsTotal *prometheus.CounterVec

	// ResolutionsTotal counts author resolution outcomes.
	// Labels: path (NONE, EXACT, FUZZY)
	ResolutionsTotal *prometheus.CounterVec

	// SemanticHits observes how many hits survived score filtering.
	SemanticHits prometheus.Histogram
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total pipeline runs by terminal status",
			},
			[]string{"status"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Per-stage pipeline latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage"},
		),

		IntentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "intents_total",
				Help:      "Classified intents after normalization and promotion",
			},
			[]string{"intent"},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "resolutions_total",
				Help:      "Author resolution outcomes by path",
			},
			[]string{"path"},
		),

		SemanticHits: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "semantic_hits",
				Help:      "Semantic hits surviving score filtering per request",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
			},
		),
	}
	return DefaultMetrics
}

// Request statuses for RecordRequest.
const (
	StatusSuccess    = "success"
	StatusCandidates = "candidates"
	StatusError      = "error"
)

// RecordRequest records a finished pipeline run.
func (m *PipelineMetrics) RecordRequest(status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(status).Inc()
}

// RecordStage records one stage's wall-clock duration.
func (m *PipelineMetrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordIntent records the final intent kind for a run.
func (m *PipelineMetrics) RecordIntent(intent string) {
	if m == nil || intent == "" {
		return
	}
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordResolution records the author resolution path taken.
func (m *PipelineMetrics) RecordResolution(path string) {
	if m == nil || path == "" {
		return
	}
	m.ResolutionsTotal.WithLabelValues(path).Inc()
}

// RecordSemanticHits observes the surviving hit count.
func (m *PipelineMetrics) RecordSemanticHits(count int) {
	if m == nil {
		return
	}
	m.SemanticHits.Observe(float64(count))
}
