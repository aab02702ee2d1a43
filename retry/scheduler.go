// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tealpine/httpr/request"
)

// A Scheduler decides how long to wait before retrying a failed HTTP
// request attempt, and may instead stop the retry altogether.
//
// Implementations of Scheduler must be safe for concurrent use by
// multiple goroutines.
//
// The robust HTTP client, httpr.Client, will not call the Scheduler on
// a retry policy if the policy Decider returned false. If the Decider
// returned true, Schedule has the final word:
//
// • a positive duration commits to exactly that wait before the next
// attempt;
//
// • a zero duration is a definitive stop; the current outcome is
// surfaced to the caller unchanged;
//
// • a non-nil error is fatal for the whole request plan execution and
// is propagated verbatim, regardless of remaining retry budget.
//
// The context passed to Schedule is the plan context; a Scheduler that
// suspends (for example one backed by an asynchronous delay strategy)
// must honor its cancellation.
type Scheduler interface {
	Schedule(ctx context.Context, e *request.Execution) (time.Duration, error)
}

// NewFixedScheduler constructs a Scheduler that always returns the
// given duration.
//
// Use NewFixedScheduler to obtain a constant retry backoff. Note that
// under the Scheduler contract a zero duration means stop, so
// NewFixedScheduler(0) halts every retry the decider would otherwise
// allow.
func NewFixedScheduler(d time.Duration) Scheduler {
	return fixedScheduler(d)
}

type fixedScheduler time.Duration

func (s fixedScheduler) Schedule(_ context.Context, _ *request.Execution) (time.Duration, error) {
	return time.Duration(s), nil
}

// NewExpScheduler constructs a Scheduler implementing an exponential
// backoff formula with optional jitter.
//
// The formula implemented is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := max(base * 2**retries, max)
//
// where retries is the number of retries already performed in the
// execution. Base and max must be positive values, and max must be at
// least equal to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. To make a scheduler that does not jitter and simply returns
// ceil on each attempt, pass nil for jitter. Otherwise you may specify
// either a random number generator seed value (as a time.Time, int, or
// int64) or a random number generator (as a rand.Source). If a seed
// value is specified, it is used to seed a random number generator
// for calculating jitter. If a rand.Source is specified, it is used to
// calculate jitter.
//
// The returned scheduler never returns a zero wait (which would read
// as a stop under the Scheduler contract): the jittered result is
// floored at one nanosecond.
func NewExpScheduler(base, max time.Duration, jitter interface{}) Scheduler {
	if base < 1 {
		panic("httpr/retry: base must be positive")
	}
	if max < base {
		panic("httpr/retry: max must be at least base")
	}
	r := jitterToRand(jitter)
	return &jitterExpScheduler{
		base: base,
		max:  max,
		rand: r,
	}
}

type jitterExpScheduler struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (s *jitterExpScheduler) Schedule(_ context.Context, e *request.Execution) (time.Duration, error) {
	return s.wait(e.Retries()), nil
}

func (s *jitterExpScheduler) wait(retries int) time.Duration {
	exp := int64(1) << retries
	if exp < 1 {
		exp = 1<<63 - 1
	}

	ceil := int64(s.base) * exp
	if ceil < int64(s.base) || int64(s.max) < ceil {
		ceil = int64(s.max)
	}

	duration := ceil
	if ceil > 0 {
		s.lock.Lock()
		defer s.lock.Unlock()
		if s.rand != nil {
			duration = s.rand.Int63n(ceil)
		}
	}
	if duration < 1 {
		duration = 1
	}

	return time.Duration(duration)
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("httpr/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("httpr/retry: invalid jitter type")
	}
	return rand.New(s)
}

// ParseRetryAfter extracts and parses the Retry-After header from an
// HTTP response. The header value may be either a non-negative integer
// count of seconds or an HTTP-date (RFC 1123 and the obsolete formats
// accepted by net/http.ParseTime).
//
// The second return value reports whether a parsable Retry-After value
// was present. An absent or unparsable header produces (0, false): a
// bad Retry-After neither forces a wait nor vetoes a retry, it is
// simply ignored.
//
// A date already in the past produces a zero duration, never a
// negative one.
func ParseRetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if date, err := http.ParseTime(v); err == nil {
		d := date.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
