// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package redirect

import (
	"net/http"
	urlpkg "net/url"

	"github.com/tealpine/httpr/request"
)

// A Policy decides whether the engine follows a redirect response to
// its target. When the most recent attempt produced a redirect
// response the engine consults the policy; if the policy declines, the
// redirect response becomes the attempt's outcome and flows into retry
// evaluation like any other response.
//
// Following a redirect never consumes retry budget and never changes
// the attempt ordinal: a redirect hop re-runs the same attempt,
// through the full transport and timeout path, at the new target.
//
// Implementations of Policy must be safe for concurrent use by
// multiple goroutines.
type Policy interface {
	// Follow reports whether the engine should follow the redirect
	// response of the most recent request within the execution.
	//
	// Follow is only consulted when Followable(e) is true.
	Follow(e *request.Execution) bool
}

// DefaultLimit is the redirect hop limit of DefaultPolicy, matching
// the limit used by the standard net/http client.
const DefaultLimit = 10

// DefaultPolicy follows up to DefaultLimit redirect hops per attempt.
var DefaultPolicy Policy = Limit(DefaultLimit)

// None is a policy that never follows redirects. A redirect response
// is surfaced to the caller (or to retry evaluation) as the final
// outcome of its attempt.
var None Policy = limit(0)

// Limit constructs a policy that follows at most n redirect hops
// within a single attempt. Once the execution's hop counter reaches n,
// the latest redirect response is surfaced as the attempt's outcome.
func Limit(n int) Policy {
	return limit(n)
}

type limit int

func (l limit) Follow(e *request.Execution) bool {
	return e.Redirects < int(l)
}

// Followable reports whether the most recent attempt outcome is a
// redirect response the engine knows how to follow: a 301, 302, 303,
// 307 or 308 status carrying a Location header that resolves against
// the request URL.
func Followable(e *request.Execution) bool {
	switch e.StatusCode() {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return false
	}
	u, err := Target(e)
	return err == nil && u != nil
}

// Target resolves the redirect target of the most recent response: the
// Location header resolved as a reference against the URL of the
// request that produced the response. It returns a nil URL if there is
// no response or no Location header, and an error if the Location
// value does not parse.
func Target(e *request.Execution) (*urlpkg.URL, error) {
	if e.Response == nil {
		return nil, nil
	}
	loc := e.Response.Header.Get("Location")
	if loc == "" {
		return nil, nil
	}
	ref, err := urlpkg.Parse(loc)
	if err != nil {
		return nil, err
	}
	if e.Request != nil && e.Request.URL != nil {
		return e.Request.URL.ResolveReference(ref), nil
	}
	return ref, nil
}

// RewriteMethod returns the request method for the follow-up to a
// redirect with the given status. Like the standard net/http client,
// the 301, 302 and 303 statuses convert every method except GET and
// HEAD to GET (dropping the request body); 307 and 308 preserve the
// method and body.
func RewriteMethod(status int, method string) string {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		if method != "GET" && method != "HEAD" {
			return "GET"
		}
	}
	return method
}
