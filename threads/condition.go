// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"v.io/x/ref/lib/kernel/trace"
)

// Condition is a condition variable bound to a Lock. Wait must be called
// with the lock held: it releases the lock while the thread waits and
// reacquires it before returning. A Signal with no waiter is not
// remembered.
//
// Woken threads compete for the CPU, and the lock, under the usual priority
// rule, so the condition must be rechecked when Wait returns.
type Condition struct {
	k       *Kernel
	name    string
	lock    *Lock
	mu      *Lock
	sem     *Semaphore
	waiters int
}

// NewCondition returns a condition variable bound to lock.
func NewCondition(name string, lock *Lock) *Condition {
	k := lock.k
	return &Condition{
		k:    k,
		name: name,
		lock: lock,
		mu:   NewLock(k, name+".mu"),
		sem:  NewSemaphore(k, name, 0),
	}
}

// Name returns the debug name of the condition variable.
func (c *Condition) Name() string { return c.name }

// Lock returns the lock the condition variable is bound to.
func (c *Condition) Lock() *Lock { return c.lock }

// Waiters returns the number of threads that are waiting and have not yet
// been signalled.
func (c *Condition) Waiters() int { return c.waiters }

// Wait releases the lock, waits to be signalled and reacquires the lock.
func (c *Condition) Wait() {
	k := c.k
	if !c.lock.IsHeldByCurrentThread() {
		k.fatalf(ErrLockNotHeld, "thread %q waits on %q without holding lock %q", k.current.name, c.name, c.lock.name)
	}
	c.mu.Acquire()
	c.waiters++
	c.mu.Release()
	cur := k.current
	k.record(trace.Event{Thread: cur.name, Kind: trace.Wait, Object: c.name, Priority: cur.priority})
	c.lock.Release()
	c.sem.P()
	c.lock.Acquire()
}

// Signal wakes up one waiting thread, if there is one.
func (c *Condition) Signal() {
	c.mu.Acquire()
	if c.waiters > 0 {
		c.waiters--
		c.wake(trace.Signal)
	}
	c.mu.Release()
}

// Broadcast wakes up every thread that is waiting.
func (c *Condition) Broadcast() {
	c.mu.Acquire()
	for c.waiters > 0 {
		c.waiters--
		c.wake(trace.Broadcast)
	}
	c.mu.Release()
}

func (c *Condition) wake(kind trace.Kind) {
	cur := c.k.current
	c.k.record(trace.Event{Thread: cur.name, Kind: kind, Object: c.name, Priority: cur.priority, Value: c.waiters})
	c.sem.V()
}
