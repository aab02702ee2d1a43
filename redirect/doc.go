// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package redirect controls how the robust HTTP client follows 3xx
// responses. Redirects are handled by the engine itself, not by the
// underlying HTTPDoer: each hop re-runs the same attempt, with fresh
// phase timers, at the resolved Location target. A hop never consumes
// retry budget and never changes the attempt ordinal, and the outcome
// of the final hop is evaluated by the retry policy exactly like any
// other outcome.
package redirect
