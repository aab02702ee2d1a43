// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request execution as
// transient or non-transient, and names transport errors with the
// POSIX-style code strings ("ECONNRESET", "ETIMEDOUT", "ENOTFOUND",
// ...) that retry policies match against their error-code allow-lists.
//
// Package transient is extremely lightweight, as it depends only on
// the standard library packages "errors", "net" and "syscall", so it
// doesn't bring any significant dependencies when imported as a
// standalone package.
package transient
