// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry decides whether a failed HTTP request attempt is
// eligible for another try, and how long to wait before trying again.
//
// The interface Policy defines a retry policy. A Policy is the
// composition of a Decider, which answers eligibility, and a
// Scheduler, which prices the wait (or stops, or fails the whole
// request). The typical entry point is Options, a structured
// configuration in the shape most HTTP clients expose (a retry limit,
// method/status-code/error-code allow-lists, a Retry-After ceiling,
// and a pluggable delay strategy) which implements Policy directly:
//
//	opts := retry.NewOptions(3)
//	opts.MaxRetryAfter = 30 * time.Second
//	client := &httpr.Client{RetryPolicy: opts}
//
// Lower-level policies can be assembled from the Decider and Scheduler
// building blocks:
//
//	decider := retry.Times(3).
//	               And(retry.Method("GET", "PUT")).
//	               And(retry.StatusCode(500).Or(retry.TransientErr))
//	scheduler := retry.NewExpScheduler(100*time.Millisecond, 2*time.Second, time.Now())
//	policy := retry.NewPolicy(decider, scheduler)
//
// If the built-in functionality is insufficient, fully custom retry
// policies can be created via custom implementations of Decider,
// Scheduler, or Policy.
//
// Two rules hold for every policy, built-in or custom. A Scheduler
// returning zero is a definitive stop, so "retry immediately" must be
// expressed as a small positive wait. And a Scheduler error is fatal
// for the whole request: it is propagated to the caller verbatim, with
// no further attempts, regardless of remaining budget.
package retry
