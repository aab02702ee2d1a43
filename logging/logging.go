// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logging provides an event handler which logs the lifecycle
// of plan executions with zerolog.
//
// Install the handler on every event:
//
//	handlers := &httpr.HandlerGroup{}
//	logging.Install(handlers, logger)
//	client := &httpr.Client{Handlers: handlers}
//
// Each execution is tagged with a fresh UUID so attempts, retries, and
// the final outcome of one execution can be correlated in the log
// stream.
package logging

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tealpine/httpr"
	"github.com/tealpine/httpr/request"
)

type idKey struct{}

// A Handler logs execution events. Create one with NewHandler.
type Handler struct {
	logger zerolog.Logger
}

// NewHandler returns a Handler logging to the given logger. Attempt
// level detail is logged at debug level, timeouts at warn level, and
// execution outcomes at info level.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Install creates a Handler and pushes it onto every event in the
// group.
func Install(g *httpr.HandlerGroup, logger zerolog.Logger) *Handler {
	h := NewHandler(logger)
	for _, evt := range httpr.Events() {
		g.PushBack(evt, h)
	}
	return h
}

// ExecutionID returns the UUID the handler assigned to the execution,
// or the empty string if the handler has not seen it.
func ExecutionID(e *request.Execution) string {
	if id, ok := e.Value(idKey{}).(string); ok {
		return id
	}
	return ""
}

// Handle implements httpr.Handler.
func (h *Handler) Handle(evt httpr.Event, e *request.Execution) {
	switch evt {
	case httpr.BeforeExecutionStart:
		id := uuid.NewString()
		e.SetValue(idKey{}, id)
		h.logger.Debug().
			Str("execution", id).
			Str("method", method(e)).
			Str("url", planURL(e)).
			Msg("execution starting")
	case httpr.BeforeAttempt:
		h.logger.Debug().
			Str("execution", ExecutionID(e)).
			Int("attempt", e.Attempt).
			Int("redirects", e.Redirects).
			Msg("sending attempt")
	case httpr.AfterAttemptTimeout:
		h.logger.Warn().
			Str("execution", ExecutionID(e)).
			Int("attempt", e.Attempt).
			Err(e.Err).
			Msg("attempt timed out")
	case httpr.AfterAttempt:
		ev := h.logger.Debug().
			Str("execution", ExecutionID(e)).
			Int("attempt", e.Attempt)
		if e.Err != nil {
			ev = ev.Err(e.Err)
		} else {
			ev = ev.Int("status", e.StatusCode())
		}
		ev.Msg("attempt finished")
	case httpr.AfterPlanTimeout:
		h.logger.Warn().
			Str("execution", ExecutionID(e)).
			Msg("plan timed out")
	case httpr.AfterExecutionEnd:
		ev := h.logger.Info().
			Str("execution", ExecutionID(e)).
			Str("method", method(e)).
			Str("url", planURL(e)).
			Int("retries", e.Retries()).
			Dur("duration", e.Duration())
		if e.Err != nil {
			ev = ev.Err(e.Err)
		} else {
			ev = ev.Int("status", e.StatusCode())
		}
		ev.Msg("execution finished")
	}
}

func method(e *request.Execution) string {
	if e.Plan == nil || e.Plan.Method == "" {
		return "GET"
	}
	return e.Plan.Method
}

func planURL(e *request.Execution) string {
	if e.Plan == nil || e.Plan.URL == nil {
		return ""
	}
	return e.Plan.URL.String()
}
