// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	for _, testCase := range newPlanTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			p, err := NewPlan(testCase.method, testCase.url, testCase.body)
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Equal(t, context.Background(), p.Context())
			}
		})
	}
}

func TestNewPlanWithContext(t *testing.T) {
	type foo struct{}
	ctx := context.WithValue(context.Background(), foo{}, "bar")
	for _, testCase := range newPlanTestCases {
		t.Run(testCase.name+" with special context", func(t *testing.T) {
			p, err := NewPlanWithContext(ctx, testCase.method, testCase.url, testCase.body)
			testCase.asserts(t, p, err)
			if p != nil {
				assert.Same(t, ctx, p.Context())
			}
		})
		t.Run(testCase.name+" with nil context", func(t *testing.T) {
			p, err := NewPlanWithContext(nil, testCase.method, testCase.url, testCase.body)
			assert.Nil(t, p)
			assert.EqualError(t, err, nilCtxMsg)
		})
	}
}

var newPlanTestCases = []struct {
	name    string
	method  string
	url     string
	body    interface{}
	asserts func(*testing.T, *Plan, error)
}{
	{
		name:   "empty method means GET",
		method: "",
		url:    "https://foo.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "GET", p.Method)
			assert.Equal(t, "https://foo.com", p.URL.String())
			assert.Nil(t, p.Body)
		},
	},
	{
		name:   "POST with string body",
		method: "POST",
		url:    "https://bar.com",
		body:   "hello",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "POST", p.Method)
			assert.Equal(t, []byte("hello"), p.Body)
			assert.True(t, p.Replayable())
		},
	},
	{
		name:   "fake valid extension method",
		method: "Fake",
		url:    "http://baz.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "Fake", p.Method)
		},
	},
	{
		name:   "invalid method",
		method: "not a token",
		url:    "http://qux.com",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, `httpr/request: invalid method "not a token"`)
		},
	},
	{
		name:   "empty port removed",
		method: "GET",
		url:    "http://host.com:",
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "host.com", p.URL.Host)
			assert.Equal(t, "host.com", p.Host)
		},
	},
	{
		name:   "invalid body type",
		method: "PUT",
		url:    "http://quux.com",
		body:   struct{}{},
		asserts: func(t *testing.T, p *Plan, err error) {
			assert.Nil(t, p)
			assert.EqualError(t, err, badBodyTypeMsg)
		},
	},
}

func TestNewStreamPlan(t *testing.T) {
	t.Run("not replayable without GetBody", func(t *testing.T) {
		p, err := NewStreamPlan("POST", "http://foo.com", strings.NewReader("stream"))
		require.NoError(t, err)
		assert.NotNil(t, p.BodyStream)
		assert.Nil(t, p.Body)
		assert.False(t, p.Replayable())
	})
	t.Run("replayable with GetBody", func(t *testing.T) {
		p, err := NewStreamPlan("POST", "http://foo.com", strings.NewReader("stream"))
		require.NoError(t, err)
		p.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("stream")), nil
		}
		assert.True(t, p.Replayable())
	})
	t.Run("nil context", func(t *testing.T) {
		p, err := NewStreamPlanWithContext(nil, "POST", "http://foo.com", strings.NewReader("x"))
		assert.Nil(t, p)
		assert.EqualError(t, err, nilCtxMsg)
	})
}

func TestWithContext(t *testing.T) {
	p, err := NewPlan("GET", "http://foo.com", nil)
	require.NoError(t, err)
	t.Run("copies plan", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "value")
		p2 := p.WithContext(ctx)
		assert.NotSame(t, p, p2)
		assert.Same(t, ctx, p2.Context())
		assert.Equal(t, context.Background(), p.Context())
		assert.Equal(t, p.Method, p2.Method)
		assert.Same(t, p.URL, p2.URL)
	})
	t.Run("nil context panics", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			p.WithContext(nil)
		})
	})
}

func TestToRequestBuffered(t *testing.T) {
	p, err := NewPlan("POST", "http://foo.com/a", "body bytes")
	require.NoError(t, err)
	p.Header.Set("X-Test", "1")

	for i := 0; i < 2; i++ {
		r, err := p.ToRequest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "http://foo.com/a", r.URL.String())
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		assert.Equal(t, int64(len("body bytes")), r.ContentLength)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "body bytes", string(b))
		require.NotNil(t, r.GetBody)
		rc, err := r.GetBody()
		require.NoError(t, err)
		b, err = io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "body bytes", string(b))
	}
}

func TestToRequestStream(t *testing.T) {
	t.Run("one-shot stream", func(t *testing.T) {
		p, err := NewStreamPlan("POST", "http://foo.com", strings.NewReader("once"))
		require.NoError(t, err)

		r, err := p.ToRequest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(-1), r.ContentLength)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "once", string(b))

		r, err = p.ToRequest(context.Background())
		assert.Nil(t, r)
		assert.EqualError(t, err, "httpr/request: stream body already consumed")
	})
	t.Run("replay via GetBody", func(t *testing.T) {
		p, err := NewStreamPlan("POST", "http://foo.com", strings.NewReader("first"))
		require.NoError(t, err)
		p.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("again")), nil
		}

		r, err := p.ToRequest(context.Background())
		require.NoError(t, err)
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "first", string(b))

		r, err = p.ToRequest(context.Background())
		require.NoError(t, err)
		b, _ = io.ReadAll(r.Body)
		assert.Equal(t, "again", string(b))
	})
	t.Run("GetBody error propagates", func(t *testing.T) {
		p, err := NewStreamPlan("POST", "http://foo.com", strings.NewReader("first"))
		require.NoError(t, err)
		getBodyErr := errors.New("no more body")
		p.GetBody = func() (io.ReadCloser, error) {
			return nil, getBodyErr
		}

		_, err = p.ToRequest(context.Background())
		require.NoError(t, err)
		r, err := p.ToRequest(context.Background())
		assert.Nil(t, r)
		assert.Same(t, getBodyErr, err)
	})
}

func TestAddCookie(t *testing.T) {
	p, err := NewPlan("GET", "http://foo.com", nil)
	require.NoError(t, err)
	p.AddCookie(&http.Cookie{Name: "a", Value: "1"})
	assert.Equal(t, "a=1", p.Header.Get("Cookie"))
	p.AddCookie(&http.Cookie{Name: "b", Value: "2"})
	assert.Equal(t, "a=1; b=2", p.Header.Get("Cookie"))
}

func TestSetBasicAuth(t *testing.T) {
	p, err := NewPlan("GET", "http://foo.com", nil)
	require.NoError(t, err)
	p.SetBasicAuth("user", "pass")
	// base64("user:pass")
	assert.Equal(t, "Basic dXNlcjpwYXNz", p.Header.Get("Authorization"))
}
