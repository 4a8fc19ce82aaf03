// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"v.io/x/ref/lib/kernel/trace"
)

func TestPriorityInheritance(t *testing.T) {
	rec := trace.NewRecorder()
	k := newKernel(t, WithRecorder(rec))
	var (
		lock                     *Lock
		low                      *Thread
		boosted, restored        int
		heldByHigh, freedByLow   bool
		highHeld, lowHeldAtStart bool
	)
	boot(t, k, func() {
		lock = NewLock(k, "l")
		low = k.Fork("low", 3, func() {
			lock.Acquire()
			lowHeldAtStart = lock.IsHeldByCurrentThread()
			k.Fork("high", 7, func() {
				lock.Acquire()
				heldByHigh = lock.Holder() == k.Current()
				highHeld = lock.IsHeldByCurrentThread()
				lock.Release()
			})
			// high runs, blocks on the lock and lends its priority.
			k.Current().Yield()
			boosted = k.Current().Priority()
			lock.Release()
			restored = k.Current().Priority()
			freedByLow = lock.Holder() == nil
			k.Current().Yield()
		})
		k.Current().Yield()
	})
	if !lowHeldAtStart {
		t.Errorf("low did not hold the lock")
	}
	if got, want := boosted, 7; got != want {
		t.Errorf("boosted priority: got %v, want %v", got, want)
	}
	if got, want := restored, 3; got != want {
		t.Errorf("restored priority: got %v, want %v", got, want)
	}
	if !freedByLow {
		t.Errorf("lock still held after Release")
	}
	if !heldByHigh || !highHeld {
		t.Errorf("high did not get the lock: %v %v", heldByHigh, highHeld)
	}
	if got, want := low.RealPriority(), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	boosts := rec.Filter(trace.Boost)
	if len(boosts) != 1 || boosts[0].Thread != "low" || boosts[0].Object != "high" || boosts[0].Priority != 7 {
		t.Errorf("unexpected boosts: %v", spew.Sdump(boosts))
	}
	restores := rec.Filter(trace.Restore)
	if len(restores) != 1 || restores[0].Thread != "low" || restores[0].Priority != 3 {
		t.Errorf("unexpected restores: %v", spew.Sdump(restores))
	}
	if got, want := rec.Threads(trace.Acquire), []string{"low", "high"}; !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNoBoostFromLowerPriority(t *testing.T) {
	k := newKernel(t)
	var during int
	boot(t, k, func() {
		lock := NewLock(k, "l")
		k.Fork("high", 6, func() {
			lock.Acquire()
			k.Fork("low", 2, func() {
				lock.Acquire()
				lock.Release()
			})
			// Let low block on the lock: high must go to sleep for that.
			s := NewSemaphore(k, "nap", 0)
			k.Fork("waker", 1, func() { s.V() })
			s.P()
			during = k.Current().Priority()
			lock.Release()
		})
		k.Current().Yield()
	})
	if got, want := during, 6; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRecursiveAcquire(t *testing.T) {
	k := newKernel(t)
	bootErr(t, k, ErrRecursiveAcquire, func() {
		l := NewLock(k, "l")
		l.Acquire()
		l.Acquire()
	})
}

func TestReleaseNotHolder(t *testing.T) {
	k := newKernel(t)
	bootErr(t, k, ErrNotHolder, func() {
		NewLock(k, "l").Release()
	})
	k = newKernel(t)
	bootErr(t, k, ErrNotHolder, func() {
		l := NewLock(k, "l")
		k.Fork("other", 1, func() { l.Acquire() })
		k.Current().Yield()
		l.Release()
	})
}

func TestMutualExclusion(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		k := newKernel(t, RandomSlice(seed))
		const threads, iterations = 5, 20
		inside, maxInside, total := 0, 0, 0
		boot(t, k, func() {
			l := NewLock(k, "l")
			for i := 0; i < threads; i++ {
				k.Fork("worker", 1, func() {
					for j := 0; j < iterations; j++ {
						l.Acquire()
						inside++
						if inside > maxInside {
							maxInside = inside
						}
						k.Current().Yield()
						total++
						inside--
						l.Release()
					}
				})
			}
		})
		if maxInside != 1 {
			t.Errorf("seed %d: %d threads held the lock at once", seed, maxInside)
		}
		if got, want := total, threads*iterations; got != want {
			t.Errorf("seed %d: got %v, want %v", seed, got, want)
		}
	}
}

func TestBoostKeptAcrossOtherLocks(t *testing.T) {
	k := newKernel(t)
	var afterSignal, afterOther, afterRelease int
	var order []string
	boot(t, k, func() {
		x := NewLock(k, "x")
		k.Fork("low", 2, func() {
			x.Acquire()
			k.Fork("high", 8, func() {
				x.Acquire()
				order = append(order, "high")
				x.Release()
			})
			k.Current().Yield()
			// Signal takes and releases the condition's own lock.
			NewCondition("c", x).Signal()
			afterSignal = k.Current().Priority()
			y := NewLock(k, "y")
			y.Acquire()
			y.Release()
			afterOther = k.Current().Priority()
			k.Fork("mid", 5, func() { order = append(order, "mid") })
			k.Current().Yield()
			x.Release()
			afterRelease = k.Current().Priority()
			k.Current().Yield()
			order = append(order, "low")
		})
	})
	for _, tc := range []struct {
		name      string
		got, want int
	}{
		{"after Signal", afterSignal, 8},
		{"after releasing another lock", afterOther, 8},
		{"after releasing the contended lock", afterRelease, 2},
	} {
		if tc.got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, tc.got, tc.want)
		}
	}
	if got, want := order, []string{"high", "mid", "low"}; !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNestedBoosts(t *testing.T) {
	k := newKernel(t)
	var both, afterX, afterY int
	boot(t, k, func() {
		x, y := NewLock(k, "x"), NewLock(k, "y")
		k.Fork("low", 2, func() {
			x.Acquire()
			y.Acquire()
			k.Fork("med", 6, func() {
				y.Acquire()
				y.Release()
			})
			k.Current().Yield()
			k.Fork("high", 8, func() {
				x.Acquire()
				x.Release()
			})
			k.Current().Yield()
			both = k.Current().Priority()
			x.Release()
			afterX = k.Current().Priority()
			y.Release()
			afterY = k.Current().Priority()
		})
	})
	if both != 8 || afterX != 6 || afterY != 2 {
		t.Errorf("got priorities %d, %d, %d, want 8, 6, 2", both, afterX, afterY)
	}
}

func TestBoostOnReacquire(t *testing.T) {
	k := newKernel(t)
	var reboosted int
	var highBlocked bool
	var order []string
	boot(t, k, func() {
		x := NewLock(k, "x")
		var high *Thread
		k.Fork("low", 2, func() {
			x.Acquire()
			high = k.Fork("high", 8, func() {
				x.Acquire()
				order = append(order, "high")
				x.Release()
			})
			k.Current().Yield()
			// high is ready but does not preempt: low takes the lock again.
			x.Release()
			x.Acquire()
			k.Fork("mid", 5, func() { order = append(order, "mid") })
			k.Current().Yield()
			reboosted = k.Current().Priority()
			highBlocked = high.Status() == Blocked
			x.Release()
			k.Current().Yield()
			order = append(order, "low")
		})
	})
	if got, want := reboosted, 8; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !highBlocked {
		t.Errorf("high did not block on the reacquired lock")
	}
	if got, want := order, []string{"high", "mid", "low"}; !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
