// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package breaker wraps an HTTPDoer with per-origin circuit breakers.
//
// Each request origin (scheme plus host) gets its own breaker. While an
// origin's breaker is open, requests to it fail fast with
// gobreaker.ErrOpenState instead of touching the network; other origins
// are unaffected. A fast-failed attempt carries no transient error
// code, so the standard retry options will not retry it.
package breaker

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tealpine/httpr"
)

// Settings configures the breakers created by a Doer.
type Settings struct {
	// MaxRequests is the number of probe requests allowed through
	// while a breaker is half-open.
	MaxRequests uint32
	// Interval is the cyclic window over which failure counts are
	// accumulated while the breaker is closed.
	Interval time.Duration
	// Timeout is how long a breaker stays open before moving to
	// half-open.
	Timeout time.Duration
	// TripAfter is the number of consecutive failures which opens the
	// breaker.
	TripAfter uint32
	// FailureStatus reports whether a response status code counts as a
	// failure. If nil, status codes of 500 and above count.
	FailureStatus func(status int) bool
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		TripAfter:   5,
	}
}

// errFailureStatus marks a response whose status code counts against
// the breaker. It never escapes Do.
var errFailureStatus = errors.New("breaker: failure status")

// A Doer decorates an httpr.HTTPDoer with per-origin circuit
// breakers. Install it as the HTTPDoer of a Client or Streamer.
//
// Doer is safe for concurrent use by multiple goroutines.
type Doer struct {
	next     httpr.HTTPDoer
	settings Settings
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New creates a circuit-breaker-wrapped HTTPDoer. If next is nil,
// httpr.DefaultDoer is used.
func New(next httpr.HTTPDoer, s Settings) *Doer {
	if next == nil {
		next = httpr.DefaultDoer
	}
	if s.FailureStatus == nil {
		s.FailureStatus = func(status int) bool {
			return status >= 500
		}
	}
	return &Doer{
		next:     next,
		settings: s,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Do sends the request through the breaker for the request's origin.
//
// While the breaker is open, Do returns gobreaker.ErrOpenState without
// sending the request. A response whose status code counts as a
// failure still reaches the caller; it only moves the breaker's
// counters.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	cb := d.breaker(origin(req))

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := d.next.Do(req)
		if err != nil {
			return nil, err
		}
		if d.settings.FailureStatus(resp.StatusCode) {
			return resp, errFailureStatus
		}
		return resp, nil
	})

	resp, _ := result.(*http.Response)
	if err == errFailureStatus {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CloseIdleConnections forwards to the wrapped HTTPDoer if it supports
// it.
func (d *Doer) CloseIdleConnections() {
	if ic, ok := d.next.(httpr.IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// State returns the current breaker state for an origin, such as
// "http://api.example.com". An origin that has not been requested yet
// reports a closed breaker.
func (d *Doer) State(origin string) gobreaker.State {
	d.mu.RLock()
	cb, ok := d.breakers[origin]
	d.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

func (d *Doer) breaker(origin string) *gobreaker.CircuitBreaker {
	d.mu.RLock()
	cb, ok := d.breakers[origin]
	d.mu.RUnlock()

	if ok {
		return cb
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, ok = d.breakers[origin]; ok {
		return cb
	}

	trip := d.settings.TripAfter
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        origin,
		MaxRequests: d.settings.MaxRequests,
		Interval:    d.settings.Interval,
		Timeout:     d.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
	})
	d.breakers[origin] = cb
	return cb
}

func origin(req *http.Request) string {
	return req.URL.Scheme + "://" + req.URL.Host
}
