// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/transient"
)

// DefaultLimit is the retry limit used by DefaultPolicy and by
// NewOptions.
const DefaultLimit = 2

// DefaultMethods is the method allow-list used by NewOptions: the
// idempotent HTTP methods. Treat it as read-only.
var DefaultMethods = []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"}

// DefaultStatusCodes is the status-code allow-list used by NewOptions.
// Treat it as read-only.
var DefaultStatusCodes = []int{408, 413, 429, 500, 502, 503, 504, 521, 522, 524}

// DefaultErrorCodes is the transport error-code allow-list used by
// NewOptions. The strings are the codes reported by transient.Code.
// Treat it as read-only.
var DefaultErrorCodes = []string{
	"ETIMEDOUT", "ECONNRESET", "EADDRINUSE", "ECONNREFUSED",
	"EPIPE", "ENOTFOUND", "ENETUNREACH", "EAI_AGAIN",
}

// ErrNegativeDelay is the fatal error produced when a delay strategy
// returns a negative duration. No default is substituted: the whole
// request plan execution ends immediately with this error.
var ErrNegativeDelay = errors.New("httpr/retry: delay strategy returned negative duration")

// A Context carries the inputs to a delay strategy: the state of the
// failed attempt the strategy is pricing a retry for.
//
// A fresh Context is constructed for every evaluation. The strategy
// must not retain it past the call.
type Context struct {
	// Attempt is the one-based ordinal of the attempt that just
	// failed, which equals the number of attempts made so far.
	Attempt int

	// Err is the terminal error of the attempt, or nil if the attempt
	// produced an HTTP response.
	Err error

	// Response is the HTTP response of the attempt, or nil if the
	// attempt ended in an error.
	Response *http.Response

	// RetryAfter is the wait the server requested via the Retry-After
	// header, valid only if HasRetryAfter is true. It is advisory
	// input: the strategy's return value, not RetryAfter, is the final
	// wait.
	RetryAfter time.Duration

	// HasRetryAfter reports whether the response carried a parsable
	// Retry-After header.
	HasRetryAfter bool
}

// A DelayFunc is a delay strategy: it receives the retry Context for a
// failed attempt and returns the wait before the next attempt.
//
// Returning a positive duration commits to exactly that wait.
// Returning zero is a definitive stop: no retry occurs, independent of
// the remaining retry budget. Returning a negative duration, or a
// non-nil error, is fatal for the whole request plan execution; the
// error is propagated to the caller verbatim.
//
// A DelayFunc may do asynchronous work (consult a rate limiter, a
// coordination service) before answering; it must honor cancellation
// of ctx, which is the plan context.
type DelayFunc func(ctx context.Context, rc *Context) (time.Duration, error)

// Options is the structured per-request retry configuration. It
// implements Policy, so it can be installed directly on an
// httpr.Client or httpr.Streamer, and both execution modes of one
// request should share a single Options value.
//
// Options is immutable during a plan execution: configure it once,
// before use. The zero value never retries (its allow-lists are empty
// and its limit is zero); use NewOptions for a value pre-filled with
// the default allow-lists.
type Options struct {
	// Limit is the maximum number of retries, so the total number of
	// attempts is at most Limit+1. A Limit of zero disables retrying
	// unconditionally, overriding every other field.
	Limit int

	// Methods is the set of HTTP methods eligible for retry. An empty
	// set means no method is ever eligible.
	Methods []string

	// StatusCodes is the set of response status codes eligible for
	// retry. An empty set means no status-driven retry ever occurs.
	StatusCodes []int

	// ErrorCodes is the set of transport error codes (as reported by
	// transient.Code) eligible for retry. An empty set means no
	// error-driven retry ever occurs.
	ErrorCodes []string

	// MaxRetryAfter is the ceiling on a server-requested Retry-After
	// wait. If a parsed Retry-After value exceeds it, the attempt is
	// ineligible for retry and the delay strategy is not consulted.
	// Zero means no ceiling.
	MaxRetryAfter time.Duration

	// CalculateDelay is the delay strategy. If nil, DefaultDelay is
	// used.
	CalculateDelay DelayFunc
}

// NewOptions returns an Options value with the given retry limit and
// the default method, status-code, and error-code allow-lists.
func NewOptions(limit int) *Options {
	return &Options{
		Limit:       limit,
		Methods:     DefaultMethods,
		StatusCodes: DefaultStatusCodes,
		ErrorCodes:  DefaultErrorCodes,
	}
}

// Decide implements Decider. The attempt outcome is eligible for retry
// if and only if retry budget remains, the plan's body is replayable,
// the plan method is in Methods, and the outcome matches the relevant
// allow-list: ErrorCodes for an error outcome, StatusCodes for a
// response outcome.
//
// Ineligibility never alters the outcome: the original error or
// response is surfaced to the caller unchanged.
func (o *Options) Decide(e *request.Execution) bool {
	if o.Limit < 1 || e.Retries() >= o.Limit {
		return false
	}
	if e.Plan != nil && !e.Plan.Replayable() {
		return false
	}
	if !o.methodAllowed(e) {
		return false
	}
	if e.Err != nil {
		code := transient.Code(e.Err)
		if code == "" {
			return false
		}
		for _, c := range o.ErrorCodes {
			if code == c {
				return true
			}
		}
		return false
	}
	if e.Response != nil {
		for _, s := range o.StatusCodes {
			if e.Response.StatusCode == s {
				return true
			}
		}
	}
	return false
}

func (o *Options) methodAllowed(e *request.Execution) bool {
	m := "GET"
	if e.Plan != nil && e.Plan.Method != "" {
		m = e.Plan.Method
	}
	for _, allowed := range o.Methods {
		if m == allowed {
			return true
		}
	}
	return false
}

// Schedule implements Scheduler. It parses the response's Retry-After
// header, if any; stops without consulting the delay strategy if the
// parsed value exceeds MaxRetryAfter; and otherwise hands the retry
// Context to the delay strategy, whose return value is the final wait.
func (o *Options) Schedule(ctx context.Context, e *request.Execution) (time.Duration, error) {
	ra, ok := ParseRetryAfter(e.Response, time.Now())
	if ok && o.MaxRetryAfter > 0 && ra > o.MaxRetryAfter {
		return 0, nil
	}

	rc := &Context{
		Attempt:       e.Attempt,
		Err:           e.Err,
		Response:      e.Response,
		RetryAfter:    ra,
		HasRetryAfter: ok,
	}
	fn := o.CalculateDelay
	if fn == nil {
		fn = DefaultDelay
	}
	d, err := fn(ctx, rc)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, ErrNegativeDelay
	}
	return d, nil
}

// DefaultDelay is the delay strategy used when Options.CalculateDelay
// is nil. If the server requested a wait via Retry-After, DefaultDelay
// honors it (floored at one millisecond, so a Retry-After date in the
// past still retries rather than reading as a stop). Otherwise it
// falls back to jittered exponential backoff with a base wait of 50
// milliseconds and a maximum wait of 1 second.
func DefaultDelay(_ context.Context, rc *Context) (time.Duration, error) {
	if rc.HasRetryAfter {
		d := rc.RetryAfter
		if d < time.Millisecond {
			d = time.Millisecond
		}
		return d, nil
	}
	retries := rc.Attempt - 1
	if retries < 0 {
		retries = 0
	}
	return defaultBackoff.wait(retries), nil
}

var defaultBackoff = NewExpScheduler(50*time.Millisecond, time.Second, time.Now()).(*jitterExpScheduler)
