// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"fmt"
	"time"
)

// An Error is the failure produced when a phase deadline elapses. It
// identifies the phase that expired and the deadline that was
// configured for it.
//
// Error implements the Timeout() interface convention used by the net
// and url packages, so transient.Categorize classifies it as Timeout
// and transient.Code reports it as "ETIMEDOUT".
type Error struct {
	// Phase is the attempt phase whose deadline elapsed.
	Phase Phase

	// Limit is the deadline that was configured for the phase.
	Limit time.Duration
}

func (err *Error) Error() string {
	return fmt.Sprintf("httpr/timeout: %s timeout after %s", err.Phase, err.Limit)
}

// Timeout always returns true.
func (err *Error) Timeout() bool {
	return true
}
