// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpr provides a robust HTTP client with retry, per-phase
timeout, and redirect support within a simple and familiar interface.

Create a Client to begin making requests.

	client := &httpr.Client{}
	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	ex, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

For control over the client's retry decisions and timing, configure a
retry policy using package retry. The Options type covers the common
cases (attempt limit, method, status code, and error code allow-lists,
Retry-After handling, and a pluggable delay strategy):

	opts := retry.NewOptions(4)
	opts.MaxRetryAfter = 30 * time.Second
	client := &httpr.Client{
		RetryPolicy: opts,
	}

or compose a policy from a Decider and a Scheduler:

	client := &httpr.Client{
		RetryPolicy: retry.NewPolicy(
			retry.Times(3).And(retry.TransientErr),
			retry.NewExpScheduler(250*time.Millisecond, 5*time.Second, time.Now()),
		),
	}

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout. A policy may bound any phase of
an attempt (name resolution, connection, TLS handshake, request send,
response header wait, body download) as well as inactivity on the
connection:

	client := &httpr.Client{
		TimeoutPolicy: timeout.Phased(timeout.Phases{
			Connect: 2 * time.Second,
			Headers: 5 * time.Second,
			Idle:    10 * time.Second,
		}),
	}

For control over redirect following, set a redirect policy using
package redirect. Following a redirect re-runs the attempt against the
new target without consuming a retry:

	client := &httpr.Client{
		RedirectPolicy: redirect.Limit(3),
	}

To consume a response body incrementally instead of buffering it, use
a Streamer. A Streamer never retries on its own: after a failed
attempt, ask the StreamExecution for a retry signal, wait out the
signalled delay, and call Resume.

To hook into the fine-grained details of the client's request execution
logic, install a handler into the appropriate handler chain:

	log := log.New(os.Stdout, "", log.LstdFlags)
	handlers := &httpr.HandlerGroup{}
	handlers.PushBack(httpr.BeforeAttempt, httpr.HandlerFunc(
		func(_ httpr.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempt, e.Request.URL.String())
		})
	)
	client := &httpr.Client{
		Handlers: handlers,
	}

Package httpr provides basic interfaces for each method of the robust
client (Doer, Getter, Header, Poster, FormPoster, and IdleCloser); a
combined interface that composes all the basic methods (Executor); and
utility functions for working with a Doer (Inflate, Get, Head, Post,
and PostForm).
*/
package httpr
