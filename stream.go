// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tealpine/httpr/redirect"
	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/retry"
	"github.com/tealpine/httpr/timeout"
)

// A Streamer executes HTTP request plans in streaming mode: the
// response body is handed to the consumer as an incremental reader
// instead of being buffered.
//
// Unlike Client, a Streamer never retries on its own. Once the consumer
// has control of the body, replaying the request behind its back would
// silently duplicate bytes it may already have acted on. Instead, after
// a failed attempt the consumer asks the execution for a retry signal
// (StreamExecution.Retry), waits out the signalled delay itself, and
// starts the next attempt with Resume. An attempt that has already
// delivered response body bytes to the consumer never yields a retry
// signal, whatever the retry policy says.
//
// Its zero value is a valid configuration using the same defaults as
// Client. A Streamer is safe for concurrent use by multiple goroutines,
// but each StreamExecution belongs to a single consumer.
type Streamer struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses. If nil, DefaultDoer is used.
	HTTPDoer HTTPDoer
	// RetryPolicy is consulted by StreamExecution.Retry. If nil,
	// retry.DefaultPolicy is used.
	RetryPolicy retry.Policy
	// TimeoutPolicy specifies the per-phase timeouts to arm on
	// individual request attempts. If nil, timeout.DefaultPolicy is
	// used. The download and inactivity phases keep running while the
	// consumer reads the body.
	TimeoutPolicy timeout.Policy
	// RedirectPolicy decides whether to follow redirect responses. If
	// nil, redirect.DefaultPolicy is used.
	RedirectPolicy redirect.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur. The BeforeReadBody event never fires in
	// streaming mode.
	Handlers *HandlerGroup
	// Timers supplies the timers backing attempt phase timeouts. If
	// nil, timers are backed by the system clock.
	Timers timeout.TimerSource
}

// A RetrySignal tells a streaming consumer that another attempt is
// permitted. The consumer is responsible for waiting out Wait before
// calling Streamer.Resume with the signal.
type RetrySignal struct {
	// Attempt is the one-based ordinal the next attempt will carry.
	Attempt int
	// Wait is the delay the retry policy scheduled before the next
	// attempt may start.
	Wait time.Duration
}

// A StreamExecution is the outcome of one streaming attempt.
//
// If the attempt produced a response, Body is non-nil and the consumer
// must read it to EOF or close it. If the attempt ended in an error,
// Body is nil and the error is recorded on the Execution.
//
// Either way, Retry may then be called once to learn whether and when
// another attempt is permitted.
type StreamExecution struct {
	// Execution is the state of the underlying plan execution. Its
	// Body field stays nil in streaming mode; the consumer reads the
	// body from the StreamExecution's Body field instead.
	Execution *request.Execution
	// Body is the response body, or nil if the attempt ended in an
	// error. Reads feed the attempt's download and inactivity timers;
	// a read that fails because a phase deadline fired returns the
	// phase's timeout error.
	Body io.ReadCloser

	ng        core
	body      *bodyReader
	delivered int64
	endOnce   sync.Once
}

// Stream executes the first attempt of an HTTP request plan in
// streaming mode.
//
// A non-nil StreamExecution is always returned, carrying the execution
// state of the attempt. The returned error is the attempt's error, nil
// if the attempt produced a response (whatever its status code).
func (s *Streamer) Stream(p *request.Plan) (*StreamExecution, error) {
	return s.stream(p, 1)
}

// Resume executes the next attempt of an HTTP request plan, carrying
// forward the attempt ordinal from a retry signal obtained from a
// previous attempt's StreamExecution.
//
// Resume does not wait: the consumer is expected to have waited out
// sig.Wait already.
func (s *Streamer) Resume(p *request.Plan, sig *RetrySignal) (*StreamExecution, error) {
	if sig == nil {
		panic("httpr: nil retry signal")
	}
	return s.stream(p, sig.Attempt)
}

func (s *Streamer) stream(p *request.Plan, ordinal int) (*StreamExecution, error) {
	if ordinal < 1 {
		ordinal = 1
	}
	e := &request.Execution{
		Plan: p,
	}
	ng := s.core()
	ng.handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()
	e.Attempt = ordinal
	body := ng.sendAndReceive(e)
	if e.Timeout() {
		e.AttemptTimeouts++
		ng.handlers.run(AfterAttemptTimeout, e)
	}
	ng.handlers.run(AfterAttempt, e)
	se := &StreamExecution{
		Execution: e,
		ng:        ng,
	}
	if body == nil {
		se.end()
		return se, e.Err
	}
	body.onRead = se.noteDelivered
	se.body = body
	se.Body = &streamBody{se: se}
	return se, nil
}

// Retry tears down the current attempt and evaluates the retry policy
// against its outcome.
//
// The return value is (nil, nil) if no further attempt is permitted:
// because response bytes were already delivered to the consumer,
// because the plan's body cannot be replayed, because the retry policy
// declined, or because the policy's delay schedule stopped the retry
// sequence. A non-nil RetrySignal means the consumer may wait out
// sig.Wait and call Streamer.Resume.
//
// A non-nil error is returned if the plan's context is cancelled or
// expired (cancellation always wins over retry eligibility), or if the
// retry policy's delay strategy failed, in which case the strategy's
// error is returned exactly as produced.
//
// ctx bounds the policy's delay computation; if nil, the plan's
// context is used.
func (se *StreamExecution) Retry(ctx context.Context) (*RetrySignal, error) {
	e := se.Execution
	p := e.Plan
	if ctx == nil {
		ctx = p.Context()
	}
	_ = se.Close()
	if err := p.Context().Err(); err != nil {
		return nil, urlErrorWrap(p, err)
	}
	if atomic.LoadInt64(&se.delivered) > 0 {
		return nil, nil
	}
	if !p.Replayable() {
		return nil, nil
	}
	if !se.ng.retry.Decide(e) {
		return nil, nil
	}
	wait, err := se.ng.retry.Schedule(ctx, e)
	if err != nil {
		return nil, err
	}
	if wait <= 0 {
		return nil, nil
	}
	return &RetrySignal{Attempt: e.Attempt + 1, Wait: wait}, nil
}

// Delivered returns the number of response body bytes delivered to the
// consumer so far in this attempt.
func (se *StreamExecution) Delivered() int64 {
	return atomic.LoadInt64(&se.delivered)
}

// Close aborts any unread remainder of the body and ends the
// execution. It is safe to call Close more than once, and after the
// body has been read to EOF.
func (se *StreamExecution) Close() error {
	var err error
	if se.body != nil {
		err = se.body.Close()
	}
	se.end()
	return err
}

func (se *StreamExecution) noteDelivered(n int) {
	atomic.AddInt64(&se.delivered, int64(n))
}

func (se *StreamExecution) end() {
	se.endOnce.Do(func() {
		se.Execution.End = time.Now()
		se.ng.handlers.run(AfterExecutionEnd, se.Execution)
	})
}

func (s *Streamer) core() core {
	return core{
		doer:     s.HTTPDoer,
		retry:    s.RetryPolicy,
		timeout:  s.TimeoutPolicy,
		redirect: s.RedirectPolicy,
		handlers: s.Handlers,
		timers:   s.Timers,
	}.withDefaults()
}

// streamBody is the consumer-facing response body. Reads record
// delivered bytes and a read error other than EOF is recorded on the
// execution so that Retry can evaluate it.
type streamBody struct {
	se *StreamExecution
}

func (b *streamBody) Read(buf []byte) (int, error) {
	n, err := b.se.body.Read(buf)
	if err == io.EOF {
		b.se.end()
	} else if err != nil {
		e := b.se.Execution
		e.Err = urlErrorWrap(e.Plan, err)
	}
	return n, err
}

func (b *streamBody) Close() error {
	return b.se.Close()
}
