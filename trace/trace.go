// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace records the abstract transitions made by the threads of a
// kernel: context switches, blocking and waking, and the operations on the
// synchronization primitives. Tests use the recorded history to check
// scheduling properties and the threadtest command can print it.
package trace

import (
	"fmt"
	"io"
	"sync"
)

// Kind identifies the kind of a recorded transition.
type Kind int

const (
	Nil Kind = iota
	Fork
	Switch
	Ready
	Block
	Finish
	Destroy
	P
	V
	Acquire
	Release
	Boost
	Restore
	Wait
	Signal
	Broadcast
	Send
	Receive
	Halt
)

var kindNames = [...]string{
	Nil:       "nil",
	Fork:      "fork",
	Switch:    "switch",
	Ready:     "ready",
	Block:     "block",
	Finish:    "finish",
	Destroy:   "destroy",
	P:         "P",
	V:         "V",
	Acquire:   "acquire",
	Release:   "release",
	Boost:     "boost",
	Restore:   "restore",
	Wait:      "wait",
	Signal:    "signal",
	Broadcast: "broadcast",
	Send:      "send",
	Receive:   "receive",
	Halt:      "halt",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Event records a single transition.
type Event struct {
	// Tick is the simulated time at which the transition happened.
	Tick int64
	// Thread is the name of the thread the transition belongs to.
	Thread string
	// Kind is the kind of the transition.
	Kind Kind
	// Object names the primitive, or the other thread for Switch and Boost.
	Object string
	// Priority is the effective priority of Thread after the transition.
	Priority int
	// Value carries the integer payload of Send and Receive.
	Value int
}

func (e Event) String() string {
	s := fmt.Sprintf("%6d %-12s %-9s", e.Tick, e.Thread, e.Kind)
	if e.Object != "" {
		s += " " + e.Object
	}
	switch e.Kind {
	case Boost, Restore, Ready, Fork:
		s += fmt.Sprintf(" prio=%d", e.Priority)
	case Send, Receive:
		s += fmt.Sprintf(" value=%d", e.Value)
	}
	return s
}

// Recorder accumulates events. A nil *Recorder discards everything recorded
// with it.
type Recorder struct {
	mu     sync.Mutex
	events []Event // GUARDED_BY(mu)
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends e to the history.
func (r *Recorder) Record(e Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded history.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the recorded events whose kind is one of kinds, in the order
// they were recorded.
func (r *Recorder) Filter(kinds ...Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Threads returns the thread names of the recorded events of the given kind,
// in order.
func (r *Recorder) Threads(kind Kind) []string {
	var out []string
	for _, e := range r.Filter(kind) {
		out = append(out, e.Thread)
	}
	return out
}

// Dump writes the history to w, one event per line.
func (r *Recorder) Dump(w io.Writer) error {
	for _, e := range r.Events() {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}
