// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"v.io/x/ref/lib/kernel/trace"
)

// Lock is a mutual exclusion lock built on a binary semaphore. Only the
// thread that acquired a Lock may release it and a thread may not acquire a
// Lock it already holds.
//
// A thread blocking on a Lock lends its priority to the holder if the holder
// is less urgent, so that a thread of intermediate priority cannot keep the
// holder, and therefore the waiter, off the CPU. On Release the holder goes
// back to its real priority, or to the priority of the most urgent waiter of
// another Lock it still holds. Inheritance is not transitive.
type Lock struct {
	k      *Kernel
	name   string
	sem    *Semaphore
	holder *Thread
}

// NewLock returns an unheld lock.
func NewLock(k *Kernel, name string) *Lock {
	return &Lock{k: k, name: name, sem: NewSemaphore(k, name, 1)}
}

// Name returns the debug name of the lock.
func (l *Lock) Name() string { return l.name }

// Holder returns the thread holding the lock, or nil.
func (l *Lock) Holder() *Thread { return l.holder }

// Acquire waits until the lock is free, then takes it.
func (l *Lock) Acquire() {
	k := l.k
	old := k.interrupt.SetLevel(IntOff)
	cur := k.current
	if l.holder == cur {
		k.fatalf(ErrRecursiveAcquire, "thread %q already holds lock %q", cur.name, l.name)
	}
	// The holder is boosted every time cur blocks: a woken waiter can
	// find the lock taken again by a less urgent thread.
	l.sem.p(func() { l.boost(cur) })
	l.holder = cur
	cur.held = append(cur.held, l)
	k.record(trace.Event{Thread: cur.name, Kind: trace.Acquire, Object: l.name, Priority: cur.priority})
	k.interrupt.SetLevel(old)
}

// boost lends the priority of waiter to the holder if the holder is less
// urgent.
func (l *Lock) boost(waiter *Thread) {
	h := l.holder
	if h == nil || h == waiter || h.priority >= waiter.priority {
		return
	}
	k := l.k
	k.ctx.VI(3).Infof("Thread %q boosts holder %q of lock %q from priority %d to %d", waiter.name, h.name, l.name, h.priority, waiter.priority)
	h.priority = waiter.priority
	k.record(trace.Event{Thread: h.name, Kind: trace.Boost, Object: waiter.name, Priority: h.priority})
	k.scheduler.ChangePriority(h)
}

// donated returns the highest priority of the threads waiting for the lock,
// or -1 if there are none.
func (l *Lock) donated() int {
	p := -1
	l.sem.queue.Iter(func(t *Thread) bool {
		if t.priority > p {
			p = t.priority
		}
		return true
	})
	return p
}

// Release frees the lock, waking up a thread waiting for it if there is one.
// The releasing thread keeps only the priority lent to it through the locks
// it still holds.
func (l *Lock) Release() {
	k := l.k
	old := k.interrupt.SetLevel(IntOff)
	cur := k.current
	if l.holder != cur {
		holder := "nobody"
		if l.holder != nil {
			holder = l.holder.name
		}
		k.fatalf(ErrNotHolder, "thread %q releases lock %q held by %s", cur.name, l.name, holder)
	}
	cur.dropHeld(l)
	if p := cur.inheritedPriority(); p != cur.priority {
		if p == cur.realPriority {
			k.scheduler.RestorePriority(cur)
		} else {
			k.ctx.VI(3).Infof("Thread %q drops from priority %d to %d", cur.name, cur.priority, p)
			cur.priority = p
			k.record(trace.Event{Thread: cur.name, Kind: trace.Restore, Priority: p})
			k.scheduler.ChangePriority(cur)
		}
	}
	l.holder = nil
	k.record(trace.Event{Thread: cur.name, Kind: trace.Release, Object: l.name, Priority: cur.priority})
	l.sem.V()
	k.interrupt.SetLevel(old)
}

// IsHeldByCurrentThread returns true if the running thread holds the lock.
func (l *Lock) IsHeldByCurrentThread() bool {
	return l.holder != nil && l.holder == l.k.current
}
