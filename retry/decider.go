// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/transient"
)

// A Decider decides if a retry should be done.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
//
// Use the built-in constructors Times, StatusCode, Method, ErrorCode,
// and Before, and the built-in decider TransientErr; or implement your
// own Decider. Use DeciderFunc to convert an ordinary function into a
// Decider, and to compose deciders logically using DeciderFunc.And and
// DeciderFunc.Or.
type Decider interface {
	Decide(e *request.Execution) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It implements the Decider interface, and
// also provides the logical composition methods And and Or.
//
// Every DeciderFunc must be safe for concurrent use by multiple
// goroutines.
//
// Simple DeciderFunc functions can be composed into complex decision
// trees using the logical composition functions DeciderFunc.And and
// DeciderFunc.Or. Because of this composition ability, it will often
// be convenient to work directly with DeciderFunc rather than with
// Decider.
type DeciderFunc func(e *request.Execution) bool

// TransientErr is a decider that indicates a retry if the current
// error is transient according to transient.Categorize.
//
// TransientErr only looks at the error, so it will always return false
// if a valid HTTP response is returned. Compose it with other deciders,
// for example a status code decider constructed with StatusCode, to
// get more complex functionality.
var TransientErr DeciderFunc = transientErr

// Decide returns true if a retry should be done, and false otherwise,
// after examining the current HTTP request plan execution state.
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And composes two retry deciders into a new decider which returns true
// if both sub-deciders return true, and false otherwise.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or composes two retry deciders into a new decider which returns
// true if either of the two sub-deciders returns true, but false if
// they both return false.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Times constructs a retry decider which allows up to n retries. The
// returned decider returns true while the number of retries already
// performed, e.Retries(), is less than n, and false otherwise.
//
// Times(0) never allows a retry, whatever the rest of the policy says.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Retries() < n
	}
}

// Before constructs a retry decider allowing retries until a certain
// amount of time has elapsed since the start of the logical HTTP request
// plan execution. The returned decider returns true while the execution
// duration is less than d, and false afterward.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode constructs a retry decider allowing retries based on the
// HTTP response status code. If the most recent request attempt within
// the plan execution received a valid HTTP response, and the response
// status code is contained in the list ss, the decider returns true.
// Otherwise, it returns false.
//
// An empty list never matches: StatusCode() returns a decider that is
// always false, an explicit opt-out of status-driven retry.
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(e *request.Execution) bool {
		for _, s := range ss2 {
			if e.StatusCode() == s {
				return true
			}
		}
		return false
	}
}

// Method constructs a retry decider allowing retries based on the
// request method of the plan under execution. The decider returns true
// if the plan's method (empty meaning GET) is contained in the list
// ms, and false otherwise.
//
// An empty list never matches: Method() returns a decider that is
// always false, an explicit opt-out of retry for every method.
func Method(ms ...string) DeciderFunc {
	ms2 := make([]string, len(ms))
	copy(ms2, ms)
	return func(e *request.Execution) bool {
		m := "GET"
		if e.Plan != nil && e.Plan.Method != "" {
			m = e.Plan.Method
		}
		for _, allowed := range ms2 {
			if m == allowed {
				return true
			}
		}
		return false
	}
}

// ErrorCode constructs a retry decider allowing retries based on the
// transport error code of the most recent request attempt, as reported
// by transient.Code. If the attempt ended in an error whose code is
// contained in the list cs, the decider returns true. Otherwise,
// including when the attempt produced a valid HTTP response, it
// returns false.
//
// An empty list never matches: ErrorCode() returns a decider that is
// always false, an explicit opt-out of error-driven retry.
func ErrorCode(cs ...string) DeciderFunc {
	cs2 := make([]string, len(cs))
	copy(cs2, cs)
	return func(e *request.Execution) bool {
		if e.Err == nil {
			return false
		}
		code := transient.Code(e.Err)
		if code == "" {
			return false
		}
		for _, c := range cs2 {
			if code == c {
				return true
			}
		}
		return false
	}
}

// Replayable is a decider that indicates a retry only if the plan's
// request body can be sent again. It vetoes retry of a plan whose
// one-shot streaming body has no way to be re-sourced. Every built-in
// policy includes it; custom policies composed from scratch should too.
var Replayable DeciderFunc = replayable

func replayable(e *request.Execution) bool {
	return e.Plan == nil || e.Plan.Replayable()
}

func transientErr(e *request.Execution) bool {
	return transient.Categorize(e.Err) != transient.Not
}
