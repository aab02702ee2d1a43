// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"time"

	"github.com/tealpine/httpr/request"
)

// A Policy controls if and how retries are done in an HTTP request
// plan execution. In particular, after every attempt during the HTTP
// request plan execution, a Policy decides whether a retry should be
// done and, if so, how long the wait period should be before retrying
// the attempt.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
//
// A Policy is composed of the Decider and Scheduler interfaces. While
// you can implement Policy yourself, it may be more efficient to use
// one of the built-in retry policies, DefaultPolicy or Never; to
// configure an Options value, which implements Policy; or to construct
// your policy using the NewPolicy constructor from existing Decider
// and Scheduler implementations.
type Policy interface {
	Decider
	Scheduler
}

// DefaultPolicy is a general-purpose retry policy suitable for common
// use cases. It is the policy produced by NewOptions(DefaultLimit):
// up to DefaultLimit retries of idempotent methods on the default
// status-code and error-code allow-lists, honoring Retry-After and
// backing off exponentially with jitter otherwise.
var DefaultPolicy Policy = NewOptions(DefaultLimit)

// Never is a policy that never retries. It is useful if you want to use
// the other features of httpr.Client but do not want retries.
var Never Policy = policy{Times(0), NewFixedScheduler(0)}

type policy struct {
	decider   Decider
	scheduler Scheduler
}

// NewPolicy composes a Decider and a Scheduler into a retry Policy.
func NewPolicy(d Decider, s Scheduler) Policy {
	return policy{decider: d, scheduler: s}
}

func (p policy) Decide(e *request.Execution) bool {
	return p.decider.Decide(e)
}

func (p policy) Schedule(ctx context.Context, e *request.Execution) (time.Duration, error) {
	return p.scheduler.Schedule(ctx, e)
}
