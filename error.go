// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"fmt"
	"net/http"
)

// A StatusError is the error a Client produces when FailOnStatus is set
// and the final outcome of an execution is an HTTP response with a
// status code outside the 2xx range.
//
// The engine wraps a StatusError in a *url.Error before returning it;
// use errors.As to recover it.
type StatusError struct {
	// StatusCode is the HTTP status code of the final response.
	StatusCode int
	// Response is the final HTTP response. Its body has already been
	// read and closed; use the Body field instead.
	Response *http.Response
	// Body is the fully-buffered response body.
	Body []byte
}

func (err *StatusError) Error() string {
	if text := http.StatusText(err.StatusCode); text != "" {
		return fmt.Sprintf("httpr: unexpected response status %d %s", err.StatusCode, text)
	}
	return fmt.Sprintf("httpr: unexpected response status %d", err.StatusCode)
}
