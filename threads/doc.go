// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threads implements the thread core of a simulated uniprocessor
// kernel: a priority scheduler and the synchronization primitives built on
// top of it.
//
// A Kernel runs one thread at a time. Each thread is backed by a goroutine,
// but a goroutine only executes while its thread holds the simulated CPU;
// Scheduler.Run hands the CPU from one goroutine to the next and parks the
// previous one. Mutual exclusion inside the kernel comes from turning
// interrupts off via Interrupt.SetLevel, never from Go's sync package.
//
// Threads are scheduled by priority, from NumPriorities-1 down to 0, and in
// FIFO order within a priority. A thread keeps the CPU until it yields,
// blocks or is preempted by the timer enabled with RandomSlice or
// TimeSlice. The primitives are:
//
//   - Semaphore: a counting semaphore with P and V.
//   - Lock: a mutex with priority inheritance.
//   - Condition: a condition variable bound to a Lock.
//   - Port: a synchronous rendezvous channel carrying integers.
//
// Misusing them, for example by releasing a Lock that the thread does not
// hold, fails a kernel assertion. That halts the machine and Kernel.Boot
// returns the corresponding error:
//
//	k := threads.New(ctx)
//	err := k.Boot(func() {
//		l := threads.NewLock(k, "l")
//		l.Release()
//	})
//	// errors.Is(err, threads.ErrNotHolder) is true.
//
// Thread functions must not defer calls into the kernel: once the machine
// halts the goroutines of unfinished threads exit, running their deferred
// calls.
package threads
