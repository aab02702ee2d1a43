// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "httpr/request: nil context"
)

// A Plan contains a logical HTTP request plan for execution by a
// client.
//
// The logical request described by a Plan will typically result in a
// lower-level http.Request (net/http) attempt being made, but may
// result in multiple request attempts, for example if a failed
// attempt needs to be retried, or if a redirect response has to be
// followed to a new target.
//
// The field structure of Plan mirrors the structure of the lower-level
// http.Request with the following differences. Server-only fields are
// removed (for example Proto). The body is normally a pre-buffered
// []byte so that every attempt can replay it; a one-shot streaming
// body may be supplied instead via BodyStream, in which case the plan
// is only replayable if GetBody is also set (see Replayable).
//
// Like the http.Request structure, a Plan has a context which controls
// the overall plan execution and can be used to cancel the inflight
// execution of a Plan at any time.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access.
	//
	// The URL's Host specifies the server to connect to, while
	// the Request's Host field optionally specifies the Host
	// header value to send in the HTTP request.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent by the
	// client.
	//
	// For further details, see the documentation of Request.Header in
	// the net/http package.
	Header http.Header

	// Body is the pre-buffered request body to be sent. A nil or
	// empty body indicates no request body should be sent, for example
	// on a GET or DELETE request.
	//
	// Because Body is fully buffered, a plan whose body is given here
	// is always replayable: every attempt sends an identical copy.
	Body []byte

	// BodyStream is an optional one-shot request body. It is only
	// consulted if Body is empty.
	//
	// A streaming body is consumed by the first attempt that sends it.
	// Unless GetBody is set, a plan with a BodyStream is not
	// replayable: once the stream has been drawn, no further attempt
	// (retry or redirect re-send) can be made, and the retry engine
	// will never offer a retry for it.
	//
	// A plan with a BodyStream must not be executed concurrently or
	// reused across executions.
	BodyStream io.Reader

	// GetBody optionally defines how to obtain a fresh copy of
	// BodyStream for a repeat attempt. Setting GetBody makes a
	// streaming plan replayable.
	GetBody func() (io.ReadCloser, error)

	// TransferEncoding lists the transfer encodings from outermost to
	// innermost. An empty list denotes the "identity" encoding.
	// TransferEncoding can usually be ignored if using the Go standard
	// http.Client (net/http) as the lower-level HTTPDoer; http.Client
	// automatically adds and removes chunked encoding as necessary when
	// sending requests.
	TransferEncoding []string

	// Close stipulates whether to close the connection after sending
	// each lower-level (net/http) Request and reading the response.
	// Setting this field prevents re-use of TCP connections between
	// request attempts to the same host (including two request attempts
	// coming from the same plan) as if Transport.DisableKeepAlives were
	// set.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host will be sent. Host may contain an international
	// domain name.
	Host string

	// ctx allows the entire Plan execution to be cancelled. It should
	// only be modified by copying the whole Plan using WithContext.
	ctx context.Context

	// streamDrawn records that BodyStream has been consumed by an
	// attempt.
	streamDrawn bool
}

// NewPlan wraps NewPlanWithContext using the background context.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. If body is an io.Reader, it is
// read to the end and buffered into a []byte. If body is an
// io.ReadCloser, it is closed after buffering. To send a body without
// buffering it first, use NewStreamPlan.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext returns a new Plan given a method, URL, and
// optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. If body is an io.Reader, it is
// read to the end and buffered into a []byte. If body is an
// io.ReadCloser, it is closed after buffering.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}) (*Plan, error) {
	p, err := newPlan(ctx, method, url)
	if err != nil {
		return nil, err
	}
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	p.Body = b
	return p, nil
}

// NewStreamPlan wraps NewStreamPlanWithContext using the background
// context.
func NewStreamPlan(method, url string, body io.Reader) (*Plan, error) {
	return NewStreamPlanWithContext(context.Background(), method, url, body)
}

// NewStreamPlanWithContext returns a new Plan whose request body is
// streamed from body rather than buffered.
//
// The first attempt that sends the plan consumes body. Unless the
// caller subsequently sets GetBody, the plan is not replayable and
// will never be retried, whatever the retry policy says.
func NewStreamPlanWithContext(ctx context.Context, method, url string, body io.Reader) (*Plan, error) {
	p, err := newPlan(ctx, method, url)
	if err != nil {
		return nil, err
	}
	p.BodyStream = body
	return p, nil
}

func newPlan(ctx context.Context, method, url string) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("httpr/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	return &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Host:   u.Host,
	}, nil
}

// Context returns the request plan's context. The context controls
// cancellation of the overall request plan. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
//
// The context controls the entire lifetime of a logical request plan
// and its execution, including: making individual request attempts
// (obtaining a connection, sending the request, reading the response
// headers and body), following redirects, running event handlers, and
// waiting for a retry wait period to expire. Cancelling the context
// always wins over retry eligibility: an execution cancelled while a
// retry is pending ends with the cancellation error, not a retry.
//
// To create a new request plan with a context, use NewPlanWithContext.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// Replayable indicates whether the plan's request body can be sent
// again on a repeat attempt.
//
// A plan with a buffered body (or no body) is always replayable. A
// plan with a BodyStream is replayable only if GetBody is set. The
// retry engine never retries a non-replayable plan, regardless of the
// configured retry policy.
func (p *Plan) Replayable() bool {
	return p.BodyStream == nil || p.GetBody != nil
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// AddCookie does not attach more than one Cookie header field. That
// means all cookies, if any, are written into the same line,
// separated by semicolons.
//
// AddCookie only sanitizes c's name and value, and does not sanitize
// a Cookie header already present in the request.
func (p *Plan) AddCookie(c *http.Cookie) {
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := p.Header.Get("Cookie"); h != "" {
		p.Header.Set("Cookie", h+"; "+s)
	} else {
		p.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the request plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
//
// Some protocols may impose additional requirements on pre-escaping the
// username and password. For instance, when used with OAuth2, both arguments
// must be URL encoded first with url.QueryEscape.
func (p *Plan) SetBasicAuth(username, password string) {
	p.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToRequest creates an HTTP request corresponding to the given request
// plan. The context of the new request is set to ctx, which may not be
// nil.
//
// For a plan with a buffered body, ToRequest never returns an error.
// For a plan with a streaming body, the first call draws down
// BodyStream; subsequent calls obtain a fresh body from GetBody, and
// return an error if GetBody is nil (non-replayable stream) or fails.
func (p *Plan) ToRequest(ctx context.Context) (*http.Request, error) {
	r := template.WithContext(ctx)
	r.Method = p.Method
	r.URL = p.URL
	r.Header = p.Header
	if len(p.Body) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(p.Body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(p.Body)), nil
		}
		r.ContentLength = int64(len(p.Body))
	} else if p.BodyStream != nil {
		if !p.streamDrawn {
			p.streamDrawn = true
			r.Body = readCloser(p.BodyStream)
		} else if p.GetBody != nil {
			b, err := p.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = b
		} else {
			return nil, errors.New("httpr/request: stream body already consumed")
		}
		r.GetBody = p.GetBody
		r.ContentLength = -1
	}
	r.TransferEncoding = p.TransferEncoding
	r.Close = p.Close
	r.Host = p.Host
	return r, nil
}

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is a valid token per RFC 7230
// section 3.2.6. The empty string is always interpreted as "GET"
// before this check runs.
func validMethod(method string) bool {
	return httpguts.ValidHeaderFieldName(method)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
