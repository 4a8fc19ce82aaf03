// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"v.io/v23/context"
	"v.io/x/ref/lib/kernel/proctable"
	"v.io/x/ref/lib/kernel/trace"
)

// Stats records the activity of a kernel.
type Stats struct {
	TotalTicks       int64
	IdleTicks        int64
	SystemTicks      int64
	ContextSwitches  int
	ThreadsCreated   int
	ThreadsDestroyed int
}

func (s Stats) String() string {
	return fmt.Sprintf("Ticks: total %d, idle %d, system %d\nContext switches: %d\nThreads: created %d, destroyed %d",
		s.TotalTicks, s.IdleTicks, s.SystemTicks, s.ContextSwitches, s.ThreadsCreated, s.ThreadsDestroyed)
}

// Opt configures a Kernel.
type Opt func(*Kernel)

// MainPriority sets the priority of the main thread. The default is 0.
func MainPriority(p int) Opt {
	return func(k *Kernel) { k.mainPriority = p }
}

// MaxThreads sets the size of the thread table, that is the number of
// threads that may exist at once. The default is proctable.DefaultSize.
func MaxThreads(n int) Opt {
	return func(k *Kernel) { k.maxThreads = n }
}

// RandomSlice enables preemption at pseudo-random intervals, using seed to
// make the interleaving reproducible.
func RandomSlice(seed int64) Opt {
	return func(k *Kernel) {
		k.timer = &timer{k: k, rng: rand.New(rand.NewSource(seed))}
	}
}

// TimeSlice enables preemption every ticks ticks. A non-positive value
// disables preemption.
func TimeSlice(ticks int64) Opt {
	return func(k *Kernel) {
		if ticks <= 0 {
			k.timer = nil
			return
		}
		k.timer = &timer{k: k, slice: ticks}
	}
}

// WithRecorder records the kernel's scheduling events in r.
func WithRecorder(r *trace.Recorder) Opt {
	return func(k *Kernel) { k.recorder = r }
}

// Kernel is a simulated uniprocessor: it owns the interrupt gate, the
// scheduler, the running thread and the thread table. A Kernel is booted
// once and runs until it halts.
type Kernel struct {
	ctx       *context.T
	id        uuid.UUID
	interrupt *Interrupt
	scheduler *Scheduler
	timer     *timer
	current   *Thread
	table     *proctable.Table[*Thread]
	recorder  *trace.Recorder
	stats     Stats

	mainPriority int
	maxThreads   int

	booted   bool
	halted   chan struct{}
	haltOnce sync.Once
	haltErr  error
	wg       sync.WaitGroup
}

// New returns a kernel that logs to ctx.
func New(ctx *context.T, opts ...Opt) *Kernel {
	k := &Kernel{
		ctx:    ctx,
		id:     uuid.New(),
		halted: make(chan struct{}),
	}
	k.interrupt = newInterrupt(k)
	k.scheduler = newScheduler(k)
	for _, o := range opts {
		o(k)
	}
	k.table = proctable.New[*Thread](k.maxThreads)
	return k
}

// Boot runs main as the kernel's first thread and returns once the machine
// has halted and every thread's goroutine has exited. It returns nil if the
// machine halted cleanly, an error matching ErrDeadlock if it went idle with
// threads still blocked, or the error of the failed assertion or panic that
// stopped it.
//
// Thread functions must not defer calls into the kernel: when the machine
// halts, the goroutines of unfinished threads exit and run their deferred
// calls.
func (k *Kernel) Boot(main func()) error {
	if k.booted {
		return ErrAlreadyBooted.Errorf(k.ctx, "kernel %v has already been booted", k.id)
	}
	k.booted = true
	if k.mainPriority < 0 || k.mainPriority >= NumPriorities {
		return ErrInvalidPriority.Errorf(k.ctx, "main priority %d is outside [0, %d)", k.mainPriority, NumPriorities)
	}
	k.ctx.Infof("kernel %v: booting", k.id)
	t := newThread(k, "main", k.mainPriority, nil)
	k.record(trace.Event{Thread: t.name, Kind: trace.Fork, Priority: t.priority})
	k.current = t
	t.status = Running
	if k.timer != nil {
		k.timer.start()
	}
	k.wg.Add(1)
	go t.body(main)
	t.sem <- struct{}{}

	<-k.halted
	k.wg.Wait()
	if t := k.scheduler.pendingDisposal; t != nil {
		k.scheduler.pendingDisposal = nil
		k.destroy(t)
	}
	k.record(trace.Event{Kind: trace.Halt})
	k.ctx.Infof("kernel %v: halted after %d ticks", k.id, k.stats.TotalTicks)
	k.ctx.VI(1).Infof("kernel %v:\n%v", k.id, k.stats)
	return k.haltErr
}

// Fork creates a thread at the given priority that runs fn and makes it
// ready to run. It must be called by a kernel thread. The forking thread
// keeps the CPU.
func (k *Kernel) Fork(name string, priority int, fn func(), opts ...ThreadOpt) *Thread {
	old := k.interrupt.SetLevel(IntOff)
	t := newThread(k, name, priority, opts)
	k.ctx.VI(2).Infof("Forking thread %q at priority %d", name, priority)
	k.record(trace.Event{Thread: name, Kind: trace.Fork, Priority: priority})
	k.wg.Add(1)
	go t.body(fn)
	k.scheduler.ReadyToRun(t)
	k.interrupt.SetLevel(old)
	return t
}

// Halt stops the machine. It must be called by a kernel thread and does not
// return.
func (k *Kernel) Halt() {
	k.interrupt.SetLevel(IntOff)
	k.ctx.Infof("kernel %v: halt requested by thread %q", k.id, k.current.name)
	k.halt(nil)
	runtime.Goexit()
}

// idleHalt stops a machine that has nothing left to do. It does not return.
func (k *Kernel) idleHalt() {
	var blocked []string
	k.table.Each(func(_ proctable.SpaceID, t *Thread) {
		if t.status == Blocked {
			blocked = append(blocked, t.name)
		}
	})
	var err error
	if len(blocked) > 0 {
		sort.Strings(blocked)
		err = ErrDeadlock.Errorf(k.ctx, "no thread can run, %d blocked: %v", len(blocked), blocked)
		k.ctx.Infof("kernel %v: %v", k.id, err)
	} else {
		k.ctx.VI(1).Infof("kernel %v: no threads ready and no pending interrupts", k.id)
	}
	k.halt(err)
	runtime.Goexit()
}

// abort halts the machine after a failed assertion or a panic in thread t.
func (k *Kernel) abort(t *Thread, r interface{}) {
	var err error
	if a, ok := r.(assertion); ok {
		err = a.err
	} else {
		err = ErrThreadPanic.Errorf(k.ctx, "thread %q panicked: %v", t.name, r)
		k.ctx.Errorf("kernel %v: %v", k.id, err)
	}
	k.halt(err)
}

func (k *Kernel) halt(err error) {
	k.haltOnce.Do(func() {
		k.haltErr = err
		close(k.halted)
	})
}

// destroy frees the carcass of a finished thread.
func (k *Kernel) destroy(t *Thread) {
	k.ctx.VI(2).Infof("Deleting thread %q", t.name)
	close(t.reap)
	k.table.Remove(t.id)
	k.stats.ThreadsDestroyed++
	k.record(trace.Event{Thread: t.name, Kind: trace.Destroy, Priority: t.priority})
}

func (k *Kernel) assertCurrent(t *Thread, op string) {
	if k.current != t {
		k.fatalf(ErrNotCurrent, "%s called on thread %q which is not running", op, t.name)
	}
}

func (k *Kernel) record(e trace.Event) {
	if k.recorder == nil {
		return
	}
	e.Tick = k.stats.TotalTicks
	k.recorder.Record(e)
}

// ID returns the identifier of this boot of the kernel.
func (k *Kernel) ID() uuid.UUID { return k.id }

// Current returns the running thread.
func (k *Kernel) Current() *Thread { return k.current }

// Scheduler returns the kernel's scheduler.
func (k *Kernel) Scheduler() *Scheduler { return k.scheduler }

// Interrupt returns the kernel's interrupt gate.
func (k *Kernel) Interrupt() *Interrupt { return k.interrupt }

// Recorder returns the event recorder, or nil.
func (k *Kernel) Recorder() *trace.Recorder { return k.recorder }

// Stats returns a snapshot of the kernel's statistics. Only the running
// thread, or the caller of Boot once it has returned, may call it.
func (k *Kernel) Stats() Stats { return k.stats }

// Threads returns the threads that have not yet been destroyed, in thread
// table order.
func (k *Kernel) Threads() []*Thread {
	var ts []*Thread
	k.table.Each(func(_ proctable.SpaceID, t *Thread) {
		ts = append(ts, t)
	})
	return ts
}

// Context returns the context the kernel logs to.
func (k *Kernel) Context() *context.T { return k.ctx }
