// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"sort"
)

// IntStatus is the interrupt enable level of the machine.
type IntStatus int

const (
	IntOff IntStatus = iota
	IntOn
)

func (s IntStatus) String() string {
	if s == IntOn {
		return "on"
	}
	return "off"
}

// MachineStatus describes what the simulated CPU is doing.
type MachineStatus int

const (
	IdleMode MachineStatus = iota
	SystemMode
)

func (s MachineStatus) String() string {
	if s == IdleMode {
		return "idle"
	}
	return "system"
}

// IntType identifies the device that raised an interrupt.
type IntType int

const (
	TimerInt IntType = iota
	ConsoleWriteInt
	ConsoleReadInt
	DeviceInt
)

var intTypeNames = [...]string{
	TimerInt:        "timer",
	ConsoleWriteInt: "console write",
	ConsoleReadInt:  "console read",
	DeviceInt:       "device",
}

func (t IntType) String() string {
	if t < 0 || int(t) >= len(intTypeNames) {
		return "unknown"
	}
	return intTypeNames[t]
}

// Simulated time advances by SystemTick whenever interrupts are re-enabled.
const SystemTick = 10

type pendingInterrupt struct {
	handler func()
	when    int64
	kind    IntType
}

// Interrupt is the interrupt gate of the simulated machine. Turning
// interrupts off is the only mutual exclusion used by the kernel: while they
// are off no timer preemption can occur, so the running thread keeps the CPU
// until it blocks or restores the previous level.
//
// Simulated time advances when interrupts are re-enabled and, when the
// machine is idle, jumps to the next pending device interrupt.
type Interrupt struct {
	k             *Kernel
	level         IntStatus
	status        MachineStatus
	inHandler     bool
	yieldOnReturn bool
	pending       []pendingInterrupt // ordered by when, FIFO among equals
}

func newInterrupt(k *Kernel) *Interrupt {
	return &Interrupt{k: k, level: IntOff, status: SystemMode}
}

// Level returns the current interrupt level.
func (i *Interrupt) Level() IntStatus {
	return i.level
}

// Status returns the current machine status.
func (i *Interrupt) Status() MachineStatus {
	return i.status
}

// SetLevel changes the interrupt level and returns the previous one, so
// that callers can restore it instead of blindly enabling interrupts.
// Re-enabling interrupts advances the simulated clock and delivers any
// interrupts that have become due, which may preempt the caller.
func (i *Interrupt) SetLevel(now IntStatus) IntStatus {
	if now == IntOn && i.inHandler {
		i.k.fatalf(ErrHandlerLevel, "interrupts may not be enabled by an interrupt handler")
	}
	old := i.level
	i.level = now
	if now == IntOn && old == IntOff {
		i.OneTick()
	}
	return old
}

// Enable turns interrupts on.
func (i *Interrupt) Enable() {
	i.SetLevel(IntOn)
}

// OneTick advances the simulated clock and services the interrupts that are
// due. If a handler asked for a context switch the running thread yields
// once the handlers have run.
func (i *Interrupt) OneTick() {
	k := i.k
	k.stats.TotalTicks += SystemTick
	k.stats.SystemTicks += SystemTick

	i.level = IntOff
	for i.checkIfDue(false) {
	}
	// The preempted thread yields with interrupts still off: restoring
	// them through SetLevel would tick again.
	if i.yieldOnReturn {
		i.yieldOnReturn = false
		k.current.yield()
	}
	i.level = IntOn
}

// YieldOnReturn asks for the running thread to be preempted once the current
// interrupt handler returns. It may only be called from a handler.
func (i *Interrupt) YieldOnReturn() {
	if !i.inHandler {
		i.k.fatalf(ErrNotInHandler, "YieldOnReturn called outside an interrupt handler")
	}
	i.yieldOnReturn = true
}

// Schedule arranges for handler to be called, with interrupts off, when the
// simulated clock reaches fromNow ticks from now.
func (i *Interrupt) Schedule(handler func(), fromNow int64, kind IntType) {
	if fromNow <= 0 {
		i.k.fatalf(ErrInvalidArgument, "%v interrupt scheduled %d ticks from now", kind, fromNow)
	}
	when := i.k.stats.TotalTicks + fromNow
	ix := sort.Search(len(i.pending), func(j int) bool { return i.pending[j].when > when })
	i.pending = append(i.pending, pendingInterrupt{})
	copy(i.pending[ix+1:], i.pending[ix:])
	i.pending[ix] = pendingInterrupt{handler: handler, when: when, kind: kind}
	i.k.ctx.VI(3).Infof("Scheduling %v interrupt at time %d", kind, when)
}

// Pending returns the number of interrupts that have been scheduled but not
// yet delivered.
func (i *Interrupt) Pending() int {
	return len(i.pending)
}

// Idle is called when no thread is ready to run. It advances the clock to
// the next pending device interrupt and delivers it; if there is none,
// nothing can ever become ready again and the machine halts. Timer
// interrupts alone do not keep an idle machine running.
func (i *Interrupt) Idle() {
	i.status = IdleMode
	if i.devicePending() && i.checkIfDue(true) {
		for i.checkIfDue(false) {
		}
		i.yieldOnReturn = false
		i.status = SystemMode
		return
	}
	i.k.idleHalt()
}

func (i *Interrupt) devicePending() bool {
	for _, p := range i.pending {
		if p.kind != TimerInt {
			return true
		}
	}
	return false
}

// checkIfDue delivers the earliest pending interrupt if it is due. If
// advanceClock is true the clock is first advanced to its due time, the
// skipped ticks being counted as idle.
func (i *Interrupt) checkIfDue(advanceClock bool) bool {
	if len(i.pending) == 0 {
		return false
	}
	k := i.k
	next := i.pending[0]
	if next.when > k.stats.TotalTicks {
		if !advanceClock {
			return false
		}
		k.stats.IdleTicks += next.when - k.stats.TotalTicks
		k.stats.TotalTicks = next.when
	}
	i.pending = i.pending[1:]
	k.ctx.VI(3).Infof("Invoking %v interrupt handler at time %d", next.kind, next.when)
	i.inHandler = true
	next.handler()
	i.inHandler = false
	return true
}
