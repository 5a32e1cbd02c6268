// Interpreter metrics
//
// Counters and gauges describing knitout runs, kept in a private Prometheus
// registry so several interpreters can be measured side by side.
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/machine"
)

const namespace = "knitout"

// KnitMetrics holds all interpreter metrics
type KnitMetrics struct {
	registry *prometheus.Registry

	// Instruction stream
	InstructionsTotal *prometheus.CounterVec
	WarningsTotal     *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	// Model
	Rows           prometheus.Gauge
	Loops          prometheus.Gauge
	Transfers      prometheus.Gauge
	LoopsMoved     prometheus.Gauge
	EmptyTransfers prometheus.Gauge
	HeightBumps    prometheus.Gauge

	// Runs
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// NewKnitMetrics creates and registers all metrics
func NewKnitMetrics() *KnitMetrics {
	km := &KnitMetrics{registry: prometheus.NewRegistry()}

	km.InstructionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instructions_total",
		Help:      "Instructions executed, by operation.",
	}, []string{"op"})
	km.WarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warnings_total",
		Help:      "Recoverable warnings, by kind.",
	}, []string{"kind"})
	km.ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Fatal errors, by code.",
	}, []string{"code"})

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	km.Rows = gauge("rows", "Yarn rows in the last model.")
	km.Loops = gauge("loops", "Loops synthesized in the last model.")
	km.Transfers = gauge("transfers", "Successful transfers in the last run.")
	km.LoopsMoved = gauge("loops_moved", "Loops relocated by transfers in the last run.")
	km.EmptyTransfers = gauge("empty_transfers", "Transfers from empty needles in the last run.")
	km.HeightBumps = gauge("height_bumps", "Floats stacked above an earlier float in the last run.")

	km.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Completed interpreter runs, by outcome.",
	}, []string{"outcome"})
	km.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of interpreter runs.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	km.registry.MustRegister(
		km.InstructionsTotal, km.WarningsTotal, km.ErrorsTotal,
		km.Rows, km.Loops, km.Transfers, km.LoopsMoved, km.EmptyTransfers, km.HeightBumps,
		km.RunsTotal, km.RunDuration,
	)
	return km
}

// Instruction counts an executed instruction.
func (km *KnitMetrics) Instruction(op string) {
	km.InstructionsTotal.WithLabelValues(op).Inc()
}

// Warning counts a recoverable warning.
func (km *KnitMetrics) Warning(kind string) {
	km.WarningsTotal.WithLabelValues(kind).Inc()
}

// Failed counts a fatal error and a failed run.
func (km *KnitMetrics) Failed(code string) {
	km.ErrorsTotal.WithLabelValues(code).Inc()
	km.RunsTotal.WithLabelValues("failed").Inc()
}

// RecordRun stores the statistics of a completed run.
func (km *KnitMetrics) RecordRun(rows int, st machine.Stats, elapsed time.Duration) {
	km.Rows.Set(float64(rows))
	km.Loops.Set(float64(st.Loops))
	km.Transfers.Set(float64(st.Transfers))
	km.LoopsMoved.Set(float64(st.LoopsMoved))
	km.EmptyTransfers.Set(float64(st.EmptyTransfers))
	km.HeightBumps.Set(float64(st.HeightBumps))
	km.RunsTotal.WithLabelValues("ok").Inc()
	km.RunDuration.Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (km *KnitMetrics) Registry() *prometheus.Registry {
	return km.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (km *KnitMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(km.registry, promhttp.HandlerOpts{})
}

// WriteText writes every metric family in the Prometheus text format.
func (km *KnitMetrics) WriteText(w io.Writer) error {
	families, err := km.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Gather returns all metrics in Prometheus text format
func (km *KnitMetrics) Gather() string {
	var buf bytes.Buffer
	_ = km.WriteText(&buf)
	return buf.String()
}

// WriteFile dumps the metrics to path.
func (km *KnitMetrics) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := km.WriteText(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
