// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics provides an event handler which exports Prometheus
// metrics about plan executions.
//
// Install the handler on every event:
//
//	handlers := &httpr.HandlerGroup{}
//	metrics.Install(handlers, prometheus.DefaultRegisterer)
//	client := &httpr.Client{Handlers: handlers}
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tealpine/httpr"
	"github.com/tealpine/httpr/request"
)

// A Handler exports execution metrics. Create one with NewHandler.
type Handler struct {
	attempts  *prometheus.CounterVec
	retries   prometheus.Counter
	timeouts  prometheus.Counter
	redirects prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewHandler returns a Handler registering its metrics with reg.
func NewHandler(reg prometheus.Registerer) *Handler {
	factory := promauto.With(reg)
	return &Handler{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "httpr",
				Subsystem: "client",
				Name:      "attempts_total",
				Help:      "Total number of HTTP request attempts",
			},
			[]string{"method", "status"},
		),
		retries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "httpr",
				Subsystem: "client",
				Name:      "retries_total",
				Help:      "Total number of retry attempts",
			},
		),
		timeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "httpr",
				Subsystem: "client",
				Name:      "attempt_timeouts_total",
				Help:      "Total number of attempts ended by a timeout",
			},
		),
		redirects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "httpr",
				Subsystem: "client",
				Name:      "redirects_total",
				Help:      "Total number of redirect hops followed",
			},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "httpr",
				Subsystem: "client",
				Name:      "execution_duration_seconds",
				Help:      "Plan execution duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
	}
}

// Install creates a Handler and pushes it onto every event in the
// group.
func Install(g *httpr.HandlerGroup, reg prometheus.Registerer) *Handler {
	h := NewHandler(reg)
	for _, evt := range httpr.Events() {
		g.PushBack(evt, h)
	}
	return h
}

// Handle implements httpr.Handler.
func (h *Handler) Handle(evt httpr.Event, e *request.Execution) {
	switch evt {
	case httpr.BeforeAttempt:
		if e.Attempt > 1 && e.Redirects == 0 {
			h.retries.Inc()
		}
		if e.Redirects > 0 {
			h.redirects.Inc()
		}
	case httpr.AfterAttemptTimeout:
		h.timeouts.Inc()
	case httpr.AfterAttempt:
		status := "error"
		if e.Err == nil {
			status = strconv.Itoa(e.StatusCode())
		}
		h.attempts.WithLabelValues(method(e), status).Inc()
	case httpr.AfterExecutionEnd:
		h.duration.WithLabelValues(method(e)).Observe(e.Duration().Seconds())
	}
}

func method(e *request.Execution) string {
	if e.Plan == nil || e.Plan.Method == "" {
		return "GET"
	}
	return e.Plan.Method
}
