// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"

	"github.com/tealpine/httpr/redirect"
	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/retry"
	"github.com/tealpine/httpr/timeout"
)

// core is the resolved configuration shared by the buffered client and
// the streamer. All fields are non-nil.
type core struct {
	doer     HTTPDoer
	retry    retry.Policy
	timeout  timeout.Policy
	redirect redirect.Policy
	handlers *HandlerGroup
	timers   timeout.TimerSource
}

func (ng core) withDefaults() core {
	if ng.doer == nil {
		ng.doer = DefaultDoer
	}
	if ng.retry == nil {
		ng.retry = retry.DefaultPolicy
	}
	if ng.timeout == nil {
		ng.timeout = timeout.DefaultPolicy
	}
	if ng.redirect == nil {
		ng.redirect = redirect.DefaultPolicy
	}
	if ng.handlers == nil {
		ng.handlers = &emptyHandlers
	}
	if ng.timers == nil {
		ng.timers = timeout.System
	}
	return ng
}

// redirectBodyDrain bounds how much of a redirect response body is
// read before closing it, so the underlying connection stays eligible
// for keep-alive reuse on the next hop.
const redirectBodyDrain = 2 << 10

// sendAndReceive runs a single request attempt, following redirects
// according to the redirect policy. Redirect hops re-run the attempt at
// a new target without changing the attempt ordinal; each hop gets a
// fresh timeout composer.
//
// If the attempt ends in an error, e.Err is set and nil is returned. If
// it ends in a response, e.Response is set and the returned body reader
// must be fully consumed and closed by the caller; the composer keeps
// guarding the download and inactivity phases until then.
func (ng core) sendAndReceive(e *request.Execution) *bodyReader {
	p := e.Plan
	hop := p
	for {
		ctx, cancel := context.WithCancel(p.Context())
		comp := timeout.NewComposer(ng.timeout.Phases(e), ng.timers, func(error) {
			cancel()
		})
		req, err := hop.ToRequest(httptrace.WithClientTrace(ctx, comp.Trace()))
		if err != nil {
			comp.Finish()
			cancel()
			e.Err = urlErrorWrap(p, err)
			return nil
		}
		e.Request = req
		ng.handlers.run(BeforeAttempt, e)
		comp.Start()
		resp, err := ng.doer.Do(e.Request)
		if err != nil {
			comp.Finish()
			cancel()
			// The transport reports an abort as a generic context or
			// connection error. Surface the phase deadline instead.
			if fired := comp.Fired(); fired != nil {
				err = fired
			}
			e.Err = urlErrorWrap(p, err)
			return nil
		}
		e.Response = resp
		if redirect.Followable(e) && ng.redirect.Follow(e) {
			next, err := followPlan(hop, e)
			drainBody(resp.Body)
			comp.Finish()
			cancel()
			if err != nil {
				e.Err = urlErrorWrap(p, err)
				return nil
			}
			e.Redirects++
			e.Response = nil
			hop = next
			continue
		}
		return &bodyReader{rc: resp.Body, comp: comp, cancel: cancel}
	}
}

// readBody buffers the whole response body into e.Body, reporting read
// progress to the timeout composer along the way.
func (ng core) readBody(e *request.Execution, body *bodyReader) {
	defer func() {
		_ = body.Close()
	}()
	ng.handlers.run(BeforeReadBody, e)
	var err error
	e.Body, err = io.ReadAll(body)
	if err != nil {
		e.Err = urlErrorWrap(e.Plan, err)
	}
}

// followPlan derives the plan for the next redirect hop from the plan
// of the hop that produced the redirect response.
func followPlan(hop *request.Plan, e *request.Execution) (*request.Plan, error) {
	target, err := redirect.Target(e)
	if err != nil {
		return nil, err
	}
	method := hop.Method
	if method == "" {
		method = "GET"
	}
	rewritten := redirect.RewriteMethod(e.StatusCode(), method)
	next := new(request.Plan)
	*next = *hop
	next.Method = rewritten
	next.URL = target
	next.Host = target.Host
	next.Header = cloneHeader(hop.Header)
	if rewritten != method {
		next.Body = nil
		next.BodyStream = nil
		next.GetBody = nil
		next.TransferEncoding = nil
		next.Header.Del("Content-Length")
		next.Header.Del("Content-Type")
		next.Header.Del("Content-Encoding")
	}
	if !strings.EqualFold(target.Host, hop.URL.Host) {
		// Following net/http, credentials do not travel to a foreign
		// host.
		next.Header.Del("Authorization")
		next.Header.Del("WWW-Authenticate")
		next.Header.Del("Cookie")
		next.Header.Del("Cookie2")
	}
	return next, nil
}

func cloneHeader(h http.Header) http.Header {
	h2 := h.Clone()
	if h2 == nil {
		h2 = make(http.Header)
	}
	return h2
}

func drainBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, redirectBodyDrain))
	_ = body.Close()
}

// bodyReader wraps a response body so that reads feed the timeout
// composer's progress tracking, read errors caused by a phase deadline
// surface as the phase error, and closing the body releases the
// attempt's context.
type bodyReader struct {
	rc     io.ReadCloser
	comp   *timeout.Composer
	cancel context.CancelFunc
	onRead func(n int)
	closed bool
}

func (b *bodyReader) Read(buf []byte) (int, error) {
	n, err := b.rc.Read(buf)
	if n > 0 {
		b.comp.BodyRead(n)
		if b.onRead != nil {
			b.onRead(n)
		}
	}
	if err == io.EOF {
		b.comp.Finish()
	} else if err != nil {
		b.comp.Finish()
		if fired := b.comp.Fired(); fired != nil {
			err = fired
		}
	}
	return n, err
}

func (b *bodyReader) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.comp.Finish()
	b.cancel()
	return b.rc.Close()
}
