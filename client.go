// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tealpine/httpr/redirect"
	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/retry"
	"github.com/tealpine/httpr/timeout"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// DefaultDoer is the HTTPDoer used when none is configured. It is an
// http.Client which does not follow redirects itself, leaving redirect
// handling to the engine's redirect policy.
//
// If you supply your own HTTPDoer and want the engine's redirect policy
// to see redirect responses, configure it the same way; an HTTPDoer
// that follows redirects internally only ever hands final responses to
// the engine.
var DefaultDoer HTTPDoer = &http.Client{
	CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

var emptyHandlers = HandlerGroup{}

// A Client is a robust HTTP client with retry, timeout, and redirect
// support. Its zero value is a valid configuration.
//
// The zero value client uses DefaultDoer as the HTTPDoer,
// timeout.DefaultPolicy as the timeout policy, retry.DefaultPolicy as
// the retry policy, redirect.DefaultPolicy as the redirect policy, and
// an empty handler group (no event handlers/plug-ins).
//
// Client's HTTPDoer typically has an internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines.
//
// A Client is higher-level than an HTTPDoer. The HTTPDoer is
// responsible for the mechanics of sending one HTTP request and
// receiving its response, while Client builds on top of the HTTPDoer's
// feature set:
//
// • Client reads and buffers the entire HTTP response body into a
// []byte (returned as the Execution.Body field);
//
// • Client retries failed request attempts using a customizable retry
// policy, and sleeps between attempts per the policy's delay schedule
// (honoring any Retry-After response header the policy consults);
//
// • Client follows redirect responses using a customizable redirect
// policy, re-running the attempt against the new target without
// changing the attempt ordinal;
//
// • Client arms per-phase timeouts on each individual request attempt
// using a customizable timeout policy;
//
// • Client invokes user-provided handler functions at designated
// plug-in points within the attempt/retry loop, allowing new features
// to be mixed in from outside libraries; and
//
// • Client implements the httpr.Executor interface.
//
// Client's HTTP methods should feel familiar to anyone who has used
// the Go standard HTTP client (http.Client). The methods use the same
// names, and follow the same rough parameter schema. The main
// differences are:
//
// • instead of consuming an http.Request, which is only suitable for
// making a one-off request attempt, Client.Do consumes a request.Plan
// which is suitable for making multiple attempts if necessary (the
// plan execution logic converts the plan into http.Request as needed);
// and
//
// • instead of producing an http.Response, all of Client's HTTP methods
// return a request.Execution, which contains some metadata about the
// plan execution as well as a fully-buffered response body.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, DefaultDoer is used.
	HTTPDoer HTTPDoer
	// RetryPolicy decides when to retry failed attempts and how long
	// to sleep after a failed attempt before retrying.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy
	// TimeoutPolicy specifies the per-phase timeouts to arm on
	// individual request attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// RedirectPolicy decides whether to follow redirect responses.
	//
	// If RedirectPolicy is nil, redirect.DefaultPolicy is used. Use
	// redirect.None to surface redirect responses to the caller
	// instead of following them.
	RedirectPolicy redirect.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Timers supplies the timers backing attempt phase timeouts. If
	// nil, timers are backed by the system clock (time.AfterFunc).
	// Non-nil values are chiefly useful in tests.
	Timers timeout.TimerSource
	// FailOnStatus converts a final outcome whose HTTP response status
	// is outside the 2xx range into an error of type *StatusError
	// (wrapped in a *url.Error). The retry and redirect policies always
	// see the raw response; the conversion applies only to the final
	// outcome of the execution.
	FailOnStatus bool
}

// Do executes an HTTP request plan and returns the results, following
// the timeout, retry, and redirect policy set on Client.
//
// The result returned is the result after the final HTTP request
// attempt made during the plan execution, as determined by the retry
// policy.
//
// An error is returned if, after doing any retries mandated by the
// retry policy, the final attempt resulted in an error. An attempt may
// end in error due to failure to speak HTTP (for example a network
// connectivity problem), or because of policy in the robust client
// (such as a phase timeout). A non-2XX status code in the final attempt
// does not result in an error unless FailOnStatus is set.
//
// The returned Execution is never nil, but may contain a nil Response
// and will contain a nil Body if an error occurred (if the initial
// HTTP request caused an error, both Response and Body are nil, but if
// the initial HTTP request succeeded and the error occurred while
// reading Body from the response, then Response is non-nil but Body
// should be treated as invalid). If an error was returned, the Err
// field of the Execution always references the same error.
//
// If the returned error is nil, the returned Execution will contain
// both a non-nil Response and a non-nil Body (although Body may have
// zero length).
//
// Any returned error will be of type *url.Error, with one exception: a
// failure of the retry policy's delay strategy ends the execution with
// that error exactly as the strategy produced it. The url.Error's
// Timeout method, and the Execution's Timeout method, will return true
// if the final request attempt timed out, or if the entire plan timed
// out.
//
// Cancelling the plan's context always wins over retry: an execution
// whose context is cancelled or expired while a retry wait is pending
// ends with the cancellation error, and no further attempt is made.
//
// For simple use cases, the Get, Head, Post, and PostForm methods may
// prove easier to use than Do.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	e := request.Execution{
		Plan: p,
	}

	ng := c.core()
	ng.handlers.run(BeforeExecutionStart, &e)
	e.Start = time.Now()

RetryLoop:
	for {
		e.Attempt++
		e.Redirects = 0
		body := ng.sendAndReceive(&e)
		if body != nil {
			ng.readBody(&e, body)
		}
		if e.Timeout() {
			e.AttemptTimeouts++
			ng.handlers.run(AfterAttemptTimeout, &e)
		}
		ng.handlers.run(AfterAttempt, &e)
		planCtxErr := p.Context().Err()
		if planCtxErr == context.DeadlineExceeded {
			ng.handlers.run(AfterPlanTimeout, &e)
			break
		} else if planCtxErr != nil {
			e.Err = urlErrorWrap(p, planCtxErr)
			break
		} else if p.Replayable() && ng.retry.Decide(&e) {
			wait, err := ng.retry.Schedule(p.Context(), &e)
			if err != nil {
				e.Err = err
				break
			}
			if wait <= 0 {
				break
			}
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-p.Context().Done():
				timer.Stop()
				err := p.Context().Err()
				e.Err = urlErrorWrap(p, err)
				if err == context.DeadlineExceeded {
					ng.handlers.run(AfterPlanTimeout, &e)
				}
				break RetryLoop
			}
			e.Response = nil
			e.Err = nil
			e.Body = nil
		} else {
			break
		}
	}

	if e.Err == nil && c.FailOnStatus && !successStatus(e.StatusCode()) {
		e.Err = urlErrorWrap(p, &StatusError{
			StatusCode: e.StatusCode(),
			Response:   e.Response,
			Body:       e.Body,
		})
	}
	e.End = time.Now()
	ng.handlers.run(AfterExecutionEnd, &e)
	return &e, e.Err
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan, request.BodyBytes, and httpr.Post,
// namely: string; []byte; io.Reader; and io.ReadCloser.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.NewPlan and Client.Do.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
//
// If the HTTPDoer does have a CloseIdleConnections method, then the
// effect of this method depends entirely on its implementation in the
// HTTPDoer. For example, the http.Client type forwards the call to its
// Transport, but only if the Transport itself has a CloseIdleConnections
// method (otherwise it does nothing).
func (c *Client) CloseIdleConnections() {
	doer := c.HTTPDoer
	if doer == nil {
		doer = DefaultDoer
	}
	if ic, ok := doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) core() core {
	return core{
		doer:     c.HTTPDoer,
		retry:    c.RetryPolicy,
		timeout:  c.TimeoutPolicy,
		redirect: c.RedirectPolicy,
		handlers: c.Handlers,
		timers:   c.Timers,
	}.withDefaults()
}

func successStatus(status int) bool {
	return status >= 200 && status < 300
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: p.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
