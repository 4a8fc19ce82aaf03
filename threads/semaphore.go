// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"v.io/x/ref/lib/kernel/internal/fifo"
	"v.io/x/ref/lib/kernel/trace"
)

// Semaphore is a counting semaphore with a FIFO queue of waiting threads.
// Its value is never negative and cannot be read by the threads using it,
// since by the time a thread acted on the value it might have changed.
type Semaphore struct {
	k     *Kernel
	name  string
	value int
	queue fifo.Queue[*Thread]
}

// NewSemaphore returns a semaphore with the given initial value.
func NewSemaphore(k *Kernel, name string, initial int) *Semaphore {
	if initial < 0 {
		k.fatalf(ErrInvalidArgument, "semaphore %q: negative initial value %d", name, initial)
	}
	return &Semaphore{k: k, name: name, value: initial}
}

// Name returns the debug name of the semaphore.
func (s *Semaphore) Name() string { return s.name }

// Value returns the current value of the semaphore, for diagnostics.
func (s *Semaphore) Value() int { return s.value }

// Waiters returns the number of threads blocked in P.
func (s *Semaphore) Waiters() int { return s.queue.Len() }

// P waits until the value is positive, then decrements it.
func (s *Semaphore) P() {
	s.p(nil)
}

// p is P with a hook that, if not nil, runs with interrupts off each time
// the caller is about to block.
func (s *Semaphore) p(blocking func()) {
	k := s.k
	old := k.interrupt.SetLevel(IntOff)
	cur := k.current
	for s.value == 0 {
		if blocking != nil {
			blocking()
		}
		k.ctx.VI(3).Infof("Thread %q waiting on semaphore %q", cur.name, s.name)
		s.queue.Append(cur)
		cur.Sleep()
	}
	s.value--
	k.record(trace.Event{Thread: cur.name, Kind: trace.P, Object: s.name, Priority: cur.priority, Value: s.value})
	k.interrupt.SetLevel(old)
}

// V increments the value, waking up the longest waiting thread if there is
// one. The value is incremented even when a thread is woken: the woken
// thread decrements it again once it runs.
func (s *Semaphore) V() {
	k := s.k
	old := k.interrupt.SetLevel(IntOff)
	if t, ok := s.queue.Remove(); ok {
		k.scheduler.ReadyToRun(t)
	}
	s.value++
	cur := k.current
	k.record(trace.Event{Thread: cur.name, Kind: trace.V, Object: s.name, Priority: cur.priority, Value: s.value})
	k.interrupt.SetLevel(old)
}
