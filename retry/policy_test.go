// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tealpine/httpr/request"
)

func TestNewPolicyComposition(t *testing.T) {
	decided := 0
	scheduled := 0
	d := DeciderFunc(func(_ *request.Execution) bool {
		decided++
		return true
	})
	s := schedulerFunc(func(_ context.Context, _ *request.Execution) (time.Duration, error) {
		scheduled++
		return time.Millisecond, nil
	})
	p := NewPolicy(d, s)
	e := request.Execution{Attempt: 1}
	assert.True(t, p.Decide(&e))
	w, err := p.Schedule(context.Background(), &e)
	assert.NoError(t, err)
	assert.Equal(t, time.Millisecond, w)
	assert.Equal(t, 1, decided)
	assert.Equal(t, 1, scheduled)
}

func TestNever(t *testing.T) {
	e := request.Execution{
		Attempt:  1,
		Response: &http.Response{StatusCode: 503, Header: make(http.Header)},
	}
	assert.False(t, Never.Decide(&e))
}

func TestDefaultPolicy(t *testing.T) {
	e := execWithStatus(t, "GET", 503)
	assert.True(t, DefaultPolicy.Decide(e))
	e.Attempt = DefaultLimit + 1
	assert.False(t, DefaultPolicy.Decide(e))
	e = execWithStatus(t, "POST", 503)
	assert.False(t, DefaultPolicy.Decide(e))
}

type schedulerFunc func(ctx context.Context, e *request.Execution) (time.Duration, error)

func (f schedulerFunc) Schedule(ctx context.Context, e *request.Execution) (time.Duration, error) {
	return f(ctx, e)
}
