// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"fmt"
	"io"

	"v.io/x/ref/lib/kernel/internal/fifo"
	"v.io/x/ref/lib/kernel/trace"
)

// NumPriorities is the number of priority levels. Priority NumPriorities-1
// is the most urgent.
const NumPriorities = 10

// Scheduler chooses the next thread to run and dispatches it.
//
// The scheduler assumes interrupts are already disabled: on a uniprocessor
// that gives it mutual exclusion. It cannot use Locks, since waiting for a
// busy Lock would itself call FindNextToRun.
type Scheduler struct {
	k *Kernel
	// readyList holds the threads that are ready to run, but not running,
	// indexed by their current priority.
	readyList [NumPriorities]fifo.Queue[*Thread]
	// pendingDisposal is a finished thread whose carcass is destroyed
	// once the next thread is running.
	pendingDisposal *Thread
}

func newScheduler(k *Kernel) *Scheduler {
	return &Scheduler{k: k}
}

func (s *Scheduler) assertOff(op string) {
	if lvl := s.k.interrupt.Level(); lvl != IntOff {
		s.k.fatalf(ErrInterruptsOn, "%s called with interrupts %v", op, lvl)
	}
}

// ReadyToRun marks a thread as ready, but not running, and puts it at the
// back of the ready list for its current priority.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.assertOff("ReadyToRun")
	if t.queuedAt >= 0 {
		s.k.fatalf(ErrAlreadyQueued, "thread %q is already on ready list %d", t.name, t.queuedAt)
	}
	s.k.ctx.VI(2).Infof("Putting thread %q on ready list %d", t.name, t.priority)
	t.status = Ready
	t.queuedAt = t.priority
	s.readyList[t.priority].Append(t)
	s.k.record(trace.Event{Thread: t.name, Kind: trace.Ready, Priority: t.priority})
}

// FindNextToRun removes and returns the first thread of the most urgent
// non-empty ready list, or nil if no thread is ready.
func (s *Scheduler) FindNextToRun() *Thread {
	for i := NumPriorities - 1; i >= 0; i-- {
		if t, ok := s.readyList[i].Remove(); ok {
			t.queuedAt = -1
			return t
		}
	}
	return nil
}

// ChangePriority moves a ready thread to the ready list matching its current
// priority, which the caller has just changed. Threads that are not on a
// ready list are left alone: they are queued at their new priority when
// they next become ready.
func (s *Scheduler) ChangePriority(t *Thread) {
	s.assertOff("ChangePriority")
	if t.queuedAt < 0 {
		return
	}
	s.readyList[t.queuedAt].FindAndRemove(t)
	t.queuedAt = -1
	s.ReadyToRun(t)
}

// RestorePriority returns a thread to its real priority, moving it to the
// matching ready list if it is ready.
func (s *Scheduler) RestorePriority(t *Thread) {
	s.assertOff("RestorePriority")
	queued := t.queuedAt >= 0
	if queued {
		s.readyList[t.queuedAt].FindAndRemove(t)
		t.queuedAt = -1
	}
	s.k.ctx.VI(3).Infof("Restoring thread %q from priority %d to %d", t.name, t.priority, t.realPriority)
	t.priority = t.realPriority
	s.k.record(trace.Event{Thread: t.name, Kind: trace.Restore, Priority: t.priority})
	if queued {
		s.ReadyToRun(t)
	}
}

// Run dispatches the CPU to next. The caller must already have changed the
// state of the running thread from running to ready, blocked or finished.
//
// Run returns, on the goroutine of the thread that called it, only once that
// thread is dispatched again. A finished thread never comes back: its
// carcass is destroyed by whichever thread runs next.
func (s *Scheduler) Run(next *Thread) {
	k := s.k
	s.assertOff("Run")
	if next == nil {
		k.fatalf(ErrNoReadyThread, "no thread to run")
	}
	old := k.current
	if old != next && old.status == Running {
		k.fatalf(ErrInvalidState, "thread %q is still running", old.name)
	}
	if old.user != nil {
		old.user.SaveState()
	}
	k.current = next
	next.status = Running
	if old != next {
		k.stats.ContextSwitches++
		k.ctx.VI(2).Infof("Switching from thread %q to thread %q", old.name, next.name)
		k.record(trace.Event{Thread: old.name, Kind: trace.Switch, Object: next.name, Priority: next.priority})
		next.sem <- struct{}{}
		old.park()
		k.ctx.VI(2).Infof("Now in thread %q", k.current.name)
	}
	s.resumed()
}

// resumed runs on the goroutine of a thread that has just been given the
// CPU: it destroys the carcass of a previously finished thread and restores
// the user-level state of the running thread.
func (s *Scheduler) resumed() {
	if t := s.pendingDisposal; t != nil {
		s.pendingDisposal = nil
		s.k.destroy(t)
	}
	if cur := s.k.current; cur.user != nil {
		cur.user.RestoreState()
	}
}

// dispose hands a finished thread over to the scheduler for destruction.
func (s *Scheduler) dispose(t *Thread) {
	if s.pendingDisposal != nil {
		s.k.fatalf(ErrInvalidState, "thread %q is already awaiting destruction", s.pendingDisposal.name)
	}
	s.pendingDisposal = t
}

// Ready returns the threads on the ready list for priority, in the order
// they will run.
func (s *Scheduler) Ready(priority int) []*Thread {
	if priority < 0 || priority >= NumPriorities {
		return nil
	}
	return s.readyList[priority].Slice()
}

// Print writes the contents of the ready lists to w.
func (s *Scheduler) Print(w io.Writer) {
	fmt.Fprintln(w, "Ready list contents:")
	for i := 0; i < NumPriorities; i++ {
		fmt.Fprintf(w, "Priority %d:", i)
		s.readyList[i].Iter(func(t *Thread) bool {
			fmt.Fprintf(w, " %s", t.name)
			return true
		})
		fmt.Fprintln(w)
	}
}
