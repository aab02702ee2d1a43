// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout sets deadlines on the individual phases of an HTTP
// request attempt: address resolution, connect, TLS handshake, socket
// inactivity, send, response header arrival, and body download, plus
// the attempt as a whole.
//
// A Policy decides which phase deadlines apply to each attempt of a
// plan execution, including retries; Fixed, Phased, and Adaptive cover
// the common cases. The Composer enforces the deadlines for one
// attempt: it arms one cancellable timer per configured phase off the
// transport's httptrace events, and aborts the attempt with a
// phase-tagged Error when the first timer fires.
//
// Timers come from a TimerSource, so tests can drive phase expiry
// deterministically without the system clock.
package timeout
