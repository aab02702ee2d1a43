// Copyright 2026 The httpr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpr

import (
	"github.com/tealpine/httpr/request"
)

// A Handler performs some custom action at a specified event during
// the course of a plan execution.
//
// To install a handler for an event, add it to a HandlerGroup and
// install the group in the Handlers field of the Client or Streamer.
//
// Implementations of Handler must be safe for concurrent use by
// multiple goroutines.
type Handler interface {
	// Handle performs the custom action for the event.
	//
	// Parameter evt indicates the event during the plan execution at
	// which the handler is being invoked. The same handler may be
	// installed for multiple events.
	//
	// Parameter e contains the current state of the plan execution.
	// The handler may modify the execution state, subject to the rules
	// described in the documentation for each event.
	Handle(evt Event, e *request.Execution)
}

// A HandlerFunc is an adapter to allow the use of ordinary functions
// as handlers. If f is a function with the appropriate signature,
// HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}

// A HandlerGroup is a group of event handlers to be used by a Client
// or Streamer. Each execution event may be associated with zero or
// more handlers. When the event occurs, the engine invokes each of
// the event's handlers in the order they were pushed onto the group.
//
// The zero value of HandlerGroup is an empty group with no handlers.
//
// Handler groups are not safe for concurrent use by multiple
// goroutines insofar as the PushBack function is concerned. Do not
// share a group among multiple goroutines if any of the goroutines
// might modify the group.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack appends a handler to the end of the handler list for a
// given event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if evt < BeforeExecutionStart || evt >= eventSentinel {
		panic("httpr: invalid event")
	}
	if h == nil {
		panic("httpr: nil handler")
	}
	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}
	g.handlers[int(evt)] = append(g.handlers[int(evt)], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	if g == nil || g.handlers == nil {
		return
	}
	for _, h := range g.handlers[int(evt)] {
		h.Handle(evt, e)
	}
}
