// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"math/rand"
)

// TimerTicks is the default time slice, in ticks, of a preempting timer.
const TimerTicks = 100

// timer periodically interrupts the machine and preempts the running
// thread. With a random source the slices are chosen uniformly between 1 and
// 2*TimerTicks, which shakes out code that relies on a particular
// interleaving.
type timer struct {
	k     *Kernel
	slice int64
	rng   *rand.Rand
}

func (t *timer) start() {
	t.k.interrupt.Schedule(t.expired, t.next(), TimerInt)
}

func (t *timer) next() int64 {
	if t.rng != nil {
		return 1 + t.rng.Int63n(2*TimerTicks)
	}
	return t.slice
}

func (t *timer) expired() {
	i := t.k.interrupt
	i.Schedule(t.expired, t.next(), TimerInt)
	if i.Status() != IdleMode {
		i.YieldOnReturn()
	}
}
