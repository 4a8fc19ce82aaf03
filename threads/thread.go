// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"fmt"
	"runtime"

	"v.io/x/ref/lib/kernel/proctable"
	"v.io/x/ref/lib/kernel/trace"
)

// Status is the scheduling state of a thread.
type Status int

const (
	Running Status = iota
	Ready
	Blocked
	Finished
)

var statusNames = [...]string{
	Running:  "RUNNING",
	Ready:    "READY",
	Blocked:  "BLOCKED",
	Finished: "FINISHED",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// UserContext is the user-level state owned by a thread, typically the CPU
// registers and address space of a user program. The scheduler saves it
// when the thread loses the CPU and restores it when the thread gets the CPU
// back.
type UserContext interface {
	SaveState()
	RestoreState()
}

// ThreadOpt configures a thread created by Fork.
type ThreadOpt func(*Thread)

// Joinable makes the thread joinable: it does not finish until another thread
// has called Join on it.
func Joinable() ThreadOpt {
	return func(t *Thread) {
		t.joinPort = NewPort(t.k, t.name+".join")
	}
}

// WithUserContext attaches user-level state to the thread.
func WithUserContext(uc UserContext) ThreadOpt {
	return func(t *Thread) {
		t.user = uc
	}
}

// Thread is a kernel thread. Each thread runs on its own goroutine, but only
// the thread the scheduler has dispatched ever executes: all others are
// parked until Scheduler.Run transfers the CPU to them.
type Thread struct {
	k            *Kernel
	name         string
	id           proctable.SpaceID
	status       Status
	priority     int
	realPriority int
	// queuedAt is the ready list holding the thread, or -1.
	queuedAt int

	// sem is the binary semaphore the goroutine parks on while it does
	// not have the CPU.
	sem chan struct{}
	// reap is closed when the thread's carcass is destroyed.
	reap chan struct{}

	// held is the locks the thread holds, in acquisition order.
	held []*Lock

	joinPort *Port
	user     UserContext
}

func newThread(k *Kernel, name string, priority int, opts []ThreadOpt) *Thread {
	if priority < 0 || priority >= NumPriorities {
		k.fatalf(ErrInvalidPriority, "thread %q: priority %d is outside [0, %d)", name, priority, NumPriorities)
	}
	t := &Thread{
		k:            k,
		name:         name,
		id:           -1,
		status:       Blocked,
		priority:     priority,
		realPriority: priority,
		queuedAt:     -1,
		sem:          make(chan struct{}, 1),
		reap:         make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	id, err := k.table.Add(t)
	if err != nil {
		k.fatal(err)
	}
	t.id = id
	k.stats.ThreadsCreated++
	return t
}

// Name returns the debug name of the thread.
func (t *Thread) Name() string { return t.name }

// ID returns the thread's slot in the kernel's thread table.
func (t *Thread) ID() proctable.SpaceID { return t.id }

// Status returns the scheduling state of the thread.
func (t *Thread) Status() Status { return t.status }

// Priority returns the current, possibly inherited, priority of the thread.
func (t *Thread) Priority() int { return t.priority }

// RealPriority returns the priority the thread was created with.
func (t *Thread) RealPriority() int { return t.realPriority }

// IsJoinable returns true if the thread was forked with Joinable.
func (t *Thread) IsJoinable() bool { return t.joinPort != nil }

// User returns the user-level state attached to the thread, if any.
func (t *Thread) User() UserContext { return t.user }

func (t *Thread) String() string {
	return fmt.Sprintf("%s(%d)", t.name, t.priority)
}

func (t *Thread) dropHeld(l *Lock) {
	for i, h := range t.held {
		if h == l {
			t.held = append(t.held[:i], t.held[i+1:]...)
			return
		}
	}
}

// inheritedPriority returns the real priority of the thread raised to that
// of the most urgent thread waiting for a lock it holds.
func (t *Thread) inheritedPriority() int {
	p := t.realPriority
	for _, l := range t.held {
		if d := l.donated(); d > p {
			p = d
		}
	}
	return p
}

// body is the goroutine that executes the thread. It waits to be dispatched
// for the first time, runs fn with interrupts enabled and finishes the
// thread when fn returns.
func (t *Thread) body(fn func()) {
	k := t.k
	defer k.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			k.abort(t, r)
		}
	}()
	t.park()
	k.scheduler.resumed()
	k.interrupt.Enable()
	fn()
	t.Finish()
}

// park blocks the goroutine until the thread is given the CPU. The goroutine
// exits instead if the thread's carcass is destroyed or the machine halts.
func (t *Thread) park() {
	select {
	case <-t.sem:
	case <-t.reap:
		runtime.Goexit()
	case <-t.k.halted:
		runtime.Goexit()
	}
}

// Yield relinquishes the CPU if another thread of at least the same
// priority is ready to run. The calling thread goes to the back of its ready
// list, so it runs again immediately only if no thread of higher priority is
// ready and none of equal priority was waiting.
func (t *Thread) Yield() {
	old := t.k.interrupt.SetLevel(IntOff)
	t.yield()
	t.k.interrupt.SetLevel(old)
}

func (t *Thread) yield() {
	k := t.k
	k.assertCurrent(t, "Yield")
	k.ctx.VI(2).Infof("Yielding thread %q", t.name)
	k.scheduler.ReadyToRun(t)
	if next := k.scheduler.FindNextToRun(); next != t {
		k.scheduler.Run(next)
	} else {
		t.status = Running
	}
}

// Sleep relinquishes the CPU because the current thread has finished or is
// blocked waiting on a synchronization primitive. Some other thread must
// eventually make it ready again. Interrupts must be disabled by the caller.
//
// If no thread is ready the machine idles until a device interrupt makes one
// ready, and halts if there is no pending device interrupt.
func (t *Thread) Sleep() {
	k := t.k
	k.assertCurrent(t, "Sleep")
	if lvl := k.interrupt.Level(); lvl != IntOff {
		k.fatalf(ErrInterruptsOn, "thread %q: Sleep called with interrupts %v", t.name, lvl)
	}
	k.ctx.VI(2).Infof("Sleeping thread %q", t.name)
	if t.status != Finished {
		t.status = Blocked
		k.record(trace.Event{Thread: t.name, Kind: trace.Block, Priority: t.priority})
	}
	next := k.scheduler.FindNextToRun()
	for next == nil {
		k.interrupt.Idle()
		next = k.scheduler.FindNextToRun()
	}
	k.scheduler.Run(next)
}

// Finish is called when the thread is done. A joinable thread first waits
// for Join to be called. The carcass cannot be destroyed here, since the
// thread is still running on it; the scheduler destroys it once another
// thread has the CPU. Finish does not return.
func (t *Thread) Finish() {
	k := t.k
	if t.joinPort != nil {
		t.joinPort.Send(0)
	}
	k.interrupt.SetLevel(IntOff)
	k.assertCurrent(t, "Finish")
	k.ctx.VI(2).Infof("Finishing thread %q", t.name)
	k.record(trace.Event{Thread: t.name, Kind: trace.Finish, Priority: t.priority})
	t.status = Finished
	k.scheduler.dispose(t)
	t.Sleep()
}

// Join waits for the thread, which must be joinable, to finish.
func (t *Thread) Join() {
	k := t.k
	if t.joinPort == nil {
		k.fatalf(ErrNotJoinable, "thread %q is not joinable", t.name)
	}
	if k.current == t {
		k.fatalf(ErrSelfJoin, "thread %q cannot join itself", t.name)
	}
	t.joinPort.Receive()
}
