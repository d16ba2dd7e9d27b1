/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package metrics exposes prometheus instrumentation for boards, flushes and focus.
// Every method is safe on a nil *Metrics, so instrumentation stays optional.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "moodboard/internal/log"
)

type Metrics struct {
	FlushesTotal       *prometheus.CounterVec
	FlushDuration      prometheus.Histogram
	HistoryOpsTotal    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	FocusSuppressed    *prometheus.CounterVec
	OpenBoards         prometheus.Gauge

	gatherer prometheus.Gatherer
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// Default returns the process-wide metrics registered with the default registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return metricsInstance
}

// New registers a fresh set of metrics with reg. Tests pass their own registry.
func New(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FlushesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_flushes_total",
			Help: "Board flushes by result (ok, error, stale)",
		}, []string{"result"}),
		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodboard_flush_duration_seconds",
			Help:    "Time spent encoding and writing a board",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		HistoryOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_history_ops_total",
			Help: "Undo and redo operations that changed a board",
		}, []string{"op"}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_validation_failures_total",
			Help: "Rejected board commands by command name",
		}, []string{"command"}),
		FocusSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_focus_suppressed_total",
			Help: "Focus requests rejected by a higher priority context",
		}, []string{"requested"}),
		OpenBoards: f.NewGauge(prometheus.GaugeOpts{
			Name: "moodboard_open_boards",
			Help: "Boards currently open",
		}),
		gatherer: g,
	}
}

func (m *Metrics) FlushOK(d time.Duration) {
	if m == nil {
		return
	}
	m.FlushesTotal.WithLabelValues("ok").Inc()
	m.FlushDuration.Observe(d.Seconds())
}

func (m *Metrics) FlushFailed(d time.Duration) {
	if m == nil {
		return
	}
	m.FlushesTotal.WithLabelValues("error").Inc()
	m.FlushDuration.Observe(d.Seconds())
}

// FlushStale counts writes skipped because a newer revision was already stored.
func (m *Metrics) FlushStale() {
	if m == nil {
		return
	}
	m.FlushesTotal.WithLabelValues("stale").Inc()
}

func (m *Metrics) HistoryOp(op string) {
	if m == nil {
		return
	}
	m.HistoryOpsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) ValidationFailed(command string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(command).Inc()
}

func (m *Metrics) Suppressed(requested string) {
	if m == nil {
		return
	}
	m.FocusSuppressed.WithLabelValues(requested).Inc()
}

func (m *Metrics) BoardOpened() {
	if m == nil {
		return
	}
	m.OpenBoards.Inc()
}

func (m *Metrics) BoardClosed() {
	if m == nil {
		return
	}
	m.OpenBoards.Dec()
}

// Handler serves the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	applog.WithComponent("metrics").Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
