// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"
)

// A Timer is a single armed deadline which can be stopped. Stop
// reports whether the call prevented the timer from firing.
type Timer interface {
	Stop() bool
}

// A TimerSource creates timers. The retry engine uses the system
// clock by default (see System); tests substitute a deterministic
// source to drive phase expiry without waiting on real time.
type TimerSource interface {
	// AfterFunc arms a timer that calls f in its own goroutine after
	// duration d.
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the TimerSource backed by the system clock
// (time.AfterFunc).
var System TimerSource = systemSource{}

type systemSource struct{}

func (systemSource) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// A Composer wraps a single request attempt's network phases with
// independently cancellable deadlines. It arms one timer per phase
// configured in the Phases it was built with; phases with no
// configured duration are never armed.
//
// Each phase's timer is armed when its phase begins (driven by
// httptrace callbacks from the transport, see Trace) and disarmed when
// the phase completes. The inactivity (idle) timer is instead rearmed
// on every progress event, including response body reads reported via
// BodyRead.
//
// The first timer to fire wins: it disarms all other timers, records
// a phase-tagged Error, and invokes the abort callback, which must
// cancel the attempt's transport. No timer fires after that, and no
// arm/disarm activity has any further effect, so an aborted attempt
// emits no residual signals.
//
// A successful attempt does not stop the timers implicitly. The engine
// must call Finish once the attempt is complete (response body fully
// consumed, or attempt abandoned), or a stray timer may fire after
// success.
//
// A Composer serves exactly one attempt and is not reusable.
type Composer struct {
	phases Phases
	source TimerSource
	abort  func(error)

	mu     sync.Mutex
	timers map[Phase]Timer
	fired  *Error
	done   bool
}

// NewComposer returns a Composer for one attempt. The abort callback
// is invoked, exactly once at most, from a timer goroutine when a
// phase deadline fires; it must cancel the attempt's transport and
// must not block. A nil source selects the system clock.
func NewComposer(phases Phases, source TimerSource, abort func(error)) *Composer {
	if abort == nil {
		panic("httpr/timeout: nil abort")
	}
	if source == nil {
		source = System
	}
	return &Composer{
		phases: phases,
		source: source,
		abort:  abort,
		timers: make(map[Phase]Timer),
	}
}

// Start arms the whole-attempt and inactivity timers. Call it
// immediately before handing the request to the transport.
func (c *Composer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(PhaseAttempt)
	c.arm(PhaseIdle)
}

// Trace returns the httptrace.ClientTrace that drives phase
// transitions from transport progress events. Attach it to the attempt
// request's context with httptrace.WithClientTrace.
func (c *Composer) Trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			c.begin(PhaseResolve)
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			c.end(PhaseResolve)
		},
		ConnectStart: func(string, string) {
			c.begin(PhaseConnect)
		},
		ConnectDone: func(string, string, error) {
			c.end(PhaseConnect)
		},
		TLSHandshakeStart: func() {
			c.begin(PhaseHandshake)
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			c.end(PhaseHandshake)
		},
		GotConn: func(httptrace.GotConnInfo) {
			c.begin(PhaseSend)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.disarm(PhaseSend)
			c.arm(PhaseHeaders)
			c.arm(PhaseIdle)
		},
		GotFirstResponseByte: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.disarm(PhaseHeaders)
			c.arm(PhaseDownload)
			c.arm(PhaseIdle)
		},
	}
}

// BodyRead reports response body read progress. It rearms the
// inactivity timer; the download timer keeps running, as it bounds the
// whole body read.
func (c *Composer) BodyRead(int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(PhaseIdle)
}

// Finish tells the composer the attempt is complete and disarms every
// pending timer. It is safe to call Finish more than once, and after a
// fire.
func (c *Composer) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	c.stopAll()
}

// Fired returns the phase-tagged error of the timer that aborted the
// attempt, or nil if no timer fired.
func (c *Composer) Fired() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

func (c *Composer) begin(ph Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(ph)
	c.arm(PhaseIdle)
}

func (c *Composer) end(ph Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarm(ph)
	c.arm(PhaseIdle)
}

// arm sets (or resets) the timer for ph. Caller must hold mu.
func (c *Composer) arm(ph Phase) {
	if c.done || c.fired != nil {
		return
	}
	d := c.phases.Get(ph)
	if d <= 0 {
		return
	}
	if t, ok := c.timers[ph]; ok {
		t.Stop()
	}
	c.timers[ph] = c.source.AfterFunc(d, func() {
		c.fire(ph, d)
	})
}

// disarm stops the timer for ph, if armed. Caller must hold mu.
func (c *Composer) disarm(ph Phase) {
	if t, ok := c.timers[ph]; ok {
		t.Stop()
		delete(c.timers, ph)
	}
}

// stopAll stops every armed timer. Caller must hold mu.
func (c *Composer) stopAll() {
	for ph, t := range c.timers {
		t.Stop()
		delete(c.timers, ph)
	}
}

func (c *Composer) fire(ph Phase, d time.Duration) {
	c.mu.Lock()
	if c.done || c.fired != nil {
		c.mu.Unlock()
		return
	}
	err := &Error{Phase: ph, Limit: d}
	c.fired = err
	c.stopAll()
	abort := c.abort
	c.mu.Unlock()

	abort(err)
}
