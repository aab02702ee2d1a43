// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tealpine/httpr/request"
	"github.com/tealpine/httpr/retry"
	"github.com/tealpine/httpr/timeout"
)

var httpServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var httpsServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var http2Server = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var servers = []*httptest.Server{httpServer, httpsServer, http2Server}

func TestMain(m *testing.M) {
	httpServer.Start()
	defer httpServer.Close()
	httpsServer.StartTLS()
	defer httpsServer.Close()
	http2Server.EnableHTTP2 = true
	http2Server.StartTLS()
	defer http2Server.Close()
	waitForServerStart(httpServer)
	waitForServerStart(httpsServer)
	waitForServerStart(http2Server)
	os.Exit(m.Run())
}

func waitForServerStart(server *httptest.Server) {
	cl := &Client{
		HTTPDoer:      noFollow(server),
		RetryPolicy:   retry.NewPolicy(retry.Before(10*time.Second).And(retry.TransientErr), retry.NewFixedScheduler(50*time.Millisecond)),
		TimeoutPolicy: timeout.Fixed(2 * time.Second),
	}
	p := respondWith(response{StatusCode: 200}).toPlan(context.Background(), "GET", server)
	e, err := cl.Do(p)
	if e.StatusCode() != 200 {
		panic(fmt.Sprintf("Test server startup failed with status %d and error %v",
			e.StatusCode(), err))
	}
}

func serverName(server *httptest.Server) string {
	switch server {
	case httpServer:
		return "http"
	case httpsServer:
		return "https"
	case http2Server:
		return "http2"
	default:
		panic("unknown server")
	}
}

// noFollow builds an HTTPDoer for the test server which does not
// follow redirects itself, so that they surface to the engine's
// redirect policy.
func noFollow(server *httptest.Server) HTTPDoer {
	return &http.Client{
		Transport: server.Client().Transport,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type bodyChunk struct {
	Pause time.Duration
	Data  []byte
}

// A response tells the test server how to answer one request.
type response struct {
	HeaderPause time.Duration
	StatusCode  int
	Header      map[string]string
	Body        []bodyChunk
}

// A serverInstruction tells the test server how to answer a sequence
// of requests. If SeqID is set, the server counts the requests it has
// seen for that ID and answers the nth request with the nth response
// (sticking on the last one); otherwise it always answers with the
// first response. The instruction travels either in the request body
// as JSON or, so that it can survive a redirect hop which drops the
// body, URL-encoded in the "inst" query parameter.
type serverInstruction struct {
	SeqID     string
	Responses []response
}

var (
	seqMu     sync.Mutex
	seqCounts = map[string]int{}
)

func seqIndex(id string, n int) int {
	seqMu.Lock()
	defer seqMu.Unlock()
	i := seqCounts[id]
	seqCounts[id] = i + 1
	if i >= n {
		i = n - 1
	}
	return i
}

func respondWith(rs ...response) *serverInstruction {
	return &serverInstruction{Responses: rs}
}

func (i *serverInstruction) withSeqID(id string) *serverInstruction {
	i.SeqID = id
	return i
}

func (i *serverInstruction) toJSON() []byte {
	b, err := json.Marshal(i)
	if err != nil {
		panic(err)
	}
	return b
}

func (i *serverInstruction) toPlan(ctx context.Context, method string, server *httptest.Server) *request.Plan {
	p, err := request.NewPlanWithContext(ctx, method, server.URL, i.toJSON())
	if err != nil {
		panic(err)
	}
	return p
}

// toQuery returns a server-relative URL carrying the instruction in
// the query string, suitable for use as a redirect Location.
func (i *serverInstruction) toQuery() string {
	return "/?inst=" + url.QueryEscape(string(i.toJSON()))
}

func (i *serverInstruction) fromRequest(req *http.Request) error {
	if q := req.URL.Query().Get("inst"); q != "" {
		_ = req.Body.Close()
		return json.Unmarshal([]byte(q), i)
	}
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, i)
}

func serverHandler(w http.ResponseWriter, req *http.Request) {
	// Decode the instruction.
	var inst serverInstruction
	err := inst.fromRequest(req)
	if err != nil {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("failed to read request: %s", err.Error()))
		return
	}

	// Validate the instruction and pick the response for this request.
	if len(inst.Responses) == 0 {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("no responses in instruction: %+v", inst))
		return
	}
	idx := 0
	if inst.SeqID != "" {
		idx = seqIndex(inst.SeqID, len(inst.Responses))
	}
	r := inst.Responses[idx]
	if r.StatusCode == 0 {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("bad StatusCode in instruction: %+v", inst))
		return
	}

	// Get the Flusher, panicking if it's not available.
	f, ok := w.(http.Flusher)
	if !ok {
		panic("w does not implement Flusher")
	}

	// Create the response headers.
	header := w.Header()
	for k, v := range r.Header {
		header.Set(k, v)
	}
	contentLength := 0
	for _, chunk := range r.Body {
		contentLength += len(chunk.Data)
	}
	header.Set("Content-Length", strconv.Itoa(contentLength))

	// Sleep for the duration indicated by the pause field. This is done
	// to allow the client to play with header phase timeouts.
	time.Sleep(r.HeaderPause)

	// Return the HTTP response stipulated by the instruction.
	w.WriteHeader(r.StatusCode)
	f.Flush()

	// Write the body in chunks, pausing before each chunk. The pause,
	// again, is to allow the client to play with inactivity timeouts.
	for _, chunk := range r.Body {
		time.Sleep(chunk.Pause)
		_, err = w.Write(chunk.Data)
		if err != nil {
			return
		}
		f.Flush()
	}
}
