// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"context"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/retry"
	"github.com/tealpine/httpr/timeout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStreamer(t *testing.T) {
	t.Run("happy path", testStreamerHappyPath)
	t.Run("retry flow", testStreamerRetryFlow)
	t.Run("delivered bytes veto retry", testStreamerDeliveredVeto)
	t.Run("error outcome", testStreamerErrorOutcome)
	t.Run("non-replayable body", testStreamerNonReplayable)
	t.Run("cancellation wins", testStreamerCancel)
	t.Run("delay strategy failure", testStreamerDelayStrategyFailure)
	t.Run("idle timeout during body", testStreamerIdleTimeout)
}

// alwaysRetry retries every outcome with a tiny fixed delay, so tests
// can prove that something other than the policy blocked the retry.
func alwaysRetry() retry.Policy {
	return retry.NewPolicy(retry.Times(10), retry.NewFixedScheduler(time.Millisecond))
}

func testStreamerHappyPath(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			var ends int
			handlers := &HandlerGroup{}
			handlers.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, _ *request.Execution) {
				ends++
			}))
			s := &Streamer{
				HTTPDoer: noFollow(server),
				Handlers: handlers,
			}
			p := respondWith(response{
				StatusCode: 200,
				Body: []bodyChunk{
					{Data: []byte("first chunk, ")},
					{Data: []byte("second chunk")},
				},
			}).toPlan(context.Background(), "PUT", server)

			se, err := s.Stream(p)

			require.NoError(t, err)
			require.NotNil(t, se)
			require.NotNil(t, se.Body)
			assert.Equal(t, 200, se.Execution.StatusCode())
			assert.Equal(t, 1, se.Execution.Attempt)
			assert.Nil(t, se.Execution.Body)

			b, err := io.ReadAll(se.Body)
			require.NoError(t, err)
			assert.Equal(t, "first chunk, second chunk", string(b))
			assert.Equal(t, int64(len(b)), se.Delivered())
			assert.NoError(t, se.Close())
			assert.True(t, se.Execution.Ended())
			assert.Equal(t, 1, ends)
		})
	}
}

func testStreamerRetryFlow(t *testing.T) {
	t.Parallel()

	s := &Streamer{
		HTTPDoer:    noFollow(httpServer),
		RetryPolicy: retry.NewOptions(2),
	}
	p := respondWith(
		response{StatusCode: 500},
		response{StatusCode: 200, Body: []bodyChunk{{Data: []byte("resumed")}}},
	).withSeqID(t.Name()).toPlan(context.Background(), "PUT", httpServer)

	se, err := s.Stream(p)
	require.NoError(t, err)
	assert.Equal(t, 500, se.Execution.StatusCode())
	assert.Equal(t, 1, se.Execution.Attempt)

	sig, err := se.Retry(nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 2, sig.Attempt)
	assert.Greater(t, sig.Wait, time.Duration(0))

	// The consumer owns the delay.
	time.Sleep(sig.Wait)

	se2, err := s.Resume(p, sig)
	require.NoError(t, err)
	assert.Equal(t, 200, se2.Execution.StatusCode())
	assert.Equal(t, 2, se2.Execution.Attempt)
	assert.Equal(t, 1, se2.Execution.Retries())

	b, err := io.ReadAll(se2.Body)
	require.NoError(t, err)
	assert.Equal(t, "resumed", string(b))
	assert.NoError(t, se2.Close())
}

func testStreamerDeliveredVeto(t *testing.T) {
	t.Parallel()

	t.Run("bytes delivered", func(t *testing.T) {
		t.Parallel()

		s := &Streamer{
			HTTPDoer:    noFollow(httpServer),
			RetryPolicy: alwaysRetry(),
		}
		p := respondWith(response{
			StatusCode: 200,
			Body:       []bodyChunk{{Data: []byte("some of this will be read")}},
		}).toPlan(context.Background(), "PUT", httpServer)

		se, err := s.Stream(p)
		require.NoError(t, err)
		buf := make([]byte, 4)
		_, err = io.ReadFull(se.Body, buf)
		require.NoError(t, err)
		require.Greater(t, se.Delivered(), int64(0))

		sig, err := se.Retry(nil)

		// The policy would retry, but bytes already reached the
		// consumer.
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("no bytes delivered", func(t *testing.T) {
		t.Parallel()

		s := &Streamer{
			HTTPDoer:    noFollow(httpServer),
			RetryPolicy: alwaysRetry(),
		}
		p := respondWith(response{
			StatusCode: 500,
			Body:       []bodyChunk{{Data: []byte("unread failure detail")}},
		}).toPlan(context.Background(), "PUT", httpServer)

		se, err := s.Stream(p)
		require.NoError(t, err)

		sig, err := se.Retry(nil)

		assert.NoError(t, err)
		require.NotNil(t, sig)
		assert.Equal(t, 2, sig.Attempt)
	})
}

func testStreamerErrorOutcome(t *testing.T) {
	t.Parallel()

	mockDoer := newMockHTTPDoer(t)
	mockDoer.On("Do", mock.Anything).Return(nil, syscall.ECONNRESET).Once()
	s := &Streamer{
		HTTPDoer:    mockDoer,
		RetryPolicy: retry.NewOptions(1),
	}
	p, err := request.NewPlan("GET", "test", nil)
	require.NoError(t, err)

	se, err := s.Stream(p)

	require.Error(t, err)
	require.NotNil(t, se)
	assert.Nil(t, se.Body)
	assert.Same(t, err, se.Execution.Err)
	assert.True(t, se.Execution.Ended())

	sig, err := se.Retry(nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 2, sig.Attempt)
}

func testStreamerNonReplayable(t *testing.T) {
	t.Parallel()

	inst := respondWith(response{StatusCode: 500})
	opts := retry.NewOptions(2)
	opts.Methods = []string{"POST"}
	s := &Streamer{
		HTTPDoer:    noFollow(httpServer),
		RetryPolicy: opts,
	}
	p, err := request.NewStreamPlan("POST", httpServer.URL, strings.NewReader(string(inst.toJSON())))
	require.NoError(t, err)

	se, err := s.Stream(p)
	require.NoError(t, err)
	assert.Equal(t, 500, se.Execution.StatusCode())

	sig, err := se.Retry(nil)

	// The one-shot request body is gone, so no retry is offered.
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func testStreamerCancel(t *testing.T) {
	t.Parallel()

	s := &Streamer{
		HTTPDoer:    noFollow(httpServer),
		RetryPolicy: alwaysRetry(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := respondWith(response{StatusCode: 500}).toPlan(ctx, "PUT", httpServer)

	se, err := s.Stream(p)
	require.NoError(t, err)

	cancel()
	sig, err := se.Retry(nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sig)
}

func testStreamerDelayStrategyFailure(t *testing.T) {
	t.Parallel()

	strategyErr := errors.New("strategy exploded")
	opts := retry.NewOptions(2)
	opts.CalculateDelay = func(_ context.Context, _ *retry.Context) (time.Duration, error) {
		return 0, strategyErr
	}
	s := &Streamer{
		HTTPDoer:    noFollow(httpServer),
		RetryPolicy: opts,
	}
	p := respondWith(response{StatusCode: 500}).toPlan(context.Background(), "PUT", httpServer)

	se, err := s.Stream(p)
	require.NoError(t, err)

	sig, err := se.Retry(nil)

	require.Error(t, err)
	assert.Same(t, strategyErr, err)
	assert.Nil(t, sig)
}

func testStreamerIdleTimeout(t *testing.T) {
	t.Parallel()

	s := &Streamer{
		HTTPDoer:      noFollow(httpServer),
		TimeoutPolicy: timeout.Phased(timeout.Phases{Idle: 30 * time.Millisecond}),
		RetryPolicy:   alwaysRetry(),
	}
	p := respondWith(response{
		StatusCode: 200,
		Body: []bodyChunk{
			{Data: []byte("prompt")},
			{Pause: 500 * time.Millisecond, Data: []byte("tardy")},
		},
	}).toPlan(context.Background(), "PUT", httpServer)

	se, err := s.Stream(p)
	require.NoError(t, err)

	_, err = io.ReadAll(se.Body)

	require.Error(t, err)
	var timeoutErr *timeout.Error
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, timeout.PhaseIdle, timeoutErr.Phase)

	// Bytes were delivered before the deadline fired, so the failure
	// is not retryable.
	sig, err := se.Retry(nil)
	assert.NoError(t, err)
	assert.Nil(t, sig)
}
