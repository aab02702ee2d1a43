// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/tealpine/httpr/request"
)

// A Phase identifies one stage of a network attempt which can carry
// its own deadline.
type Phase string

const (
	// PhaseResolve is address resolution (DNS lookup).
	PhaseResolve Phase = "resolve"
	// PhaseConnect is establishment of the TCP connection.
	PhaseConnect Phase = "connect"
	// PhaseHandshake is the TLS handshake.
	PhaseHandshake Phase = "handshake"
	// PhaseIdle is socket inactivity. Unlike the other phases, its
	// timer is rearmed on every progress event, so it only fires after
	// the configured duration passes with no network activity at all.
	PhaseIdle Phase = "idle"
	// PhaseSend is transmission of the request.
	PhaseSend Phase = "send"
	// PhaseHeaders is the wait for the response headers to arrive
	// after the request has been fully sent.
	PhaseHeaders Phase = "headers"
	// PhaseDownload is the read of the response body, measured from
	// the arrival of the first response byte.
	PhaseDownload Phase = "download"
	// PhaseAttempt is the entire request attempt, end to end.
	PhaseAttempt Phase = "attempt"
)

// Phases maps each attempt phase to its deadline. A zero duration
// means the phase carries no deadline and its timer is never armed.
type Phases struct {
	Resolve   time.Duration
	Connect   time.Duration
	Handshake time.Duration
	Idle      time.Duration
	Send      time.Duration
	Headers   time.Duration
	Download  time.Duration
	Attempt   time.Duration
}

// Get returns the configured deadline for the given phase, or zero if
// the phase carries no deadline.
func (p Phases) Get(ph Phase) time.Duration {
	switch ph {
	case PhaseResolve:
		return p.Resolve
	case PhaseConnect:
		return p.Connect
	case PhaseHandshake:
		return p.Handshake
	case PhaseIdle:
		return p.Idle
	case PhaseSend:
		return p.Send
	case PhaseHeaders:
		return p.Headers
	case PhaseDownload:
		return p.Download
	case PhaseAttempt:
		return p.Attempt
	default:
		return 0
	}
}

// A Policy defines a timeout policy which may be plugged into the
// robust HTTP client (httpr.Client) to direct the phase deadlines for
// the initial attempt, as well as for any subsequent retries.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Phases returns the phase deadlines to set on the next HTTP
	// request attempt within the plan execution.
	//
	// Parameter e contains the current state of the HTTP request plan
	// execution.
	Phases(e *request.Execution) Phases
}

// DefaultPolicy is the default timeout policy. It sets a fixed
// inactivity deadline of 5 seconds on each attempt.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite is a built-in timeout policy which never times out: no
// phase timer is ever armed.
var Infinite Policy = Phased(Phases{})

// Fixed constructs a timeout policy that arms the same inactivity
// deadline on every attempt: the attempt fails if the configured
// duration ever passes with no network progress at all.
//
// Use Fixed for the single-duration timeout shorthand supported by
// most retrying HTTP client software. For independent per-phase
// deadlines, use Phased.
func Fixed(d time.Duration) Policy {
	return adaptive([]time.Duration{d})
}

// Phased constructs a timeout policy that arms the same set of phase
// deadlines on every attempt.
func Phased(p Phases) Policy {
	return phased(p)
}

type phased Phases

func (p phased) Phases(_ *request.Execution) Phases {
	return Phases(p)
}

// Adaptive constructs a timeout policy that varies the inactivity
// deadline if the previous attempt timed out.
//
// Use Adaptive if you find the remote service often exhibits one-off
// slow response times that can be cured by quickly timing out and
// retrying, but you also need to protect your application (and the
// remote service) from retry storms and failure if the remote service
// goes through a burst of slowness where most response times during
// the burst are slower than your usual quick timeout.
//
// Parameter usual represents the inactivity deadline the policy will
// use for an initial attempt and for any retry where the immediately
// preceding attempt did not time out.
//
// Parameter after contains deadlines the policy will use if the
// previous attempt timed out. If this was the first timeout of the
// execution, after[0] is used; if the second, after[1], and so on.
// If more attempts have timed out within the execution than after has
// elements, then the last element of after is used.
//
// Consider the following timeout policy:
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// The policy p will use 200 milliseconds as the usual inactivity
// deadline but if the preceding attempt timed out and was the first
// timeout of the execution, it will use 1 second; and if the previous
// attempt timed out and was not the first timeout, it will use 10
// seconds.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return adaptive(append(p, after...))
}

type adaptive []time.Duration

func (p adaptive) Phases(e *request.Execution) Phases {
	if !e.Timeout() {
		return Phases{Idle: p[0]}
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return Phases{Idle: p[i]}
}
