// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"v.io/v23/context"
	"v.io/v23/verror"
	"v.io/x/ref/lib/kernel/proctable"
)

func newKernel(t *testing.T, opts ...Opt) *Kernel {
	ctx, cancel := context.RootContext()
	t.Cleanup(cancel)
	return New(ctx, opts...)
}

func boot(t *testing.T, k *Kernel, main func()) {
	t.Helper()
	if err := k.Boot(main); err != nil {
		t.Fatalf("Boot: %v", err)
	}
}

func bootErr(t *testing.T, k *Kernel, id verror.IDAction, main func()) error {
	t.Helper()
	err := k.Boot(main)
	if !errors.Is(err, id) {
		t.Fatalf("Boot: got %v, want %v", err, id.ID)
	}
	return err
}

// expectAssertion calls f, which must fail a kernel assertion with id.
func expectAssertion(t *testing.T, id verror.IDAction, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		a, ok := r.(assertion)
		if !ok {
			t.Fatalf("got panic %v, want assertion %v", r, id.ID)
		}
		if !errors.Is(a.err, id) {
			t.Fatalf("got assertion %v, want %v", a.err, id.ID)
		}
	}()
	f()
}

func TestBoot(t *testing.T) {
	k := newKernel(t, MainPriority(4))
	ran := false
	var name string
	var prio int
	boot(t, k, func() {
		ran = true
		name = k.Current().Name()
		prio = k.Current().Priority()
	})
	if !ran {
		t.Fatalf("main did not run")
	}
	if got, want := name, "main"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := prio, 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	st := k.Stats()
	if st.ThreadsCreated != 1 || st.ThreadsDestroyed != 1 {
		t.Errorf("unexpected stats: %v", spew.Sdump(st))
	}
	if st.TotalTicks != st.SystemTicks+st.IdleTicks {
		t.Errorf("ticks do not add up: %v", spew.Sdump(st))
	}
	if got := len(k.Threads()); got != 0 {
		t.Errorf("%d threads left in the table", got)
	}
	if err := k.Boot(func() {}); !errors.Is(err, ErrAlreadyBooted) {
		t.Errorf("second Boot: got %v, want %v", err, ErrAlreadyBooted.ID)
	}
}

func TestBootInvalidPriority(t *testing.T) {
	for _, p := range []int{-1, NumPriorities} {
		k := newKernel(t, MainPriority(p))
		bootErr(t, k, ErrInvalidPriority, func() {
			t.Errorf("main ran at priority %d", p)
		})
	}
}

func TestHalt(t *testing.T) {
	k := newKernel(t)
	ranChild, afterHalt := false, false
	boot(t, k, func() {
		k.Fork("child", 5, func() { ranChild = true })
		k.Halt()
		afterHalt = true
	})
	if ranChild || afterHalt {
		t.Errorf("ran after halt: child %v, main %v", ranChild, afterHalt)
	}
	if got, want := len(k.Threads()), 2; got != want {
		t.Errorf("got %v live threads, want %v", got, want)
	}
}

func TestDeadlock(t *testing.T) {
	k := newKernel(t)
	err := bootErr(t, k, ErrDeadlock, func() {
		s := NewSemaphore(k, "never", 0)
		k.Fork("waiter", 1, func() { s.P() })
		s.P()
	})
	if !strings.Contains(err.Error(), "main") || !strings.Contains(err.Error(), "waiter") {
		t.Errorf("error does not name the blocked threads: %v", err)
	}
}

func TestPanic(t *testing.T) {
	k := newKernel(t)
	err := bootErr(t, k, ErrThreadPanic, func() {
		k.Fork("bad", 1, func() { panic("boom") })
		k.Current().Yield()
		t.Errorf("main resumed after a panic")
	})
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error lacks the panic value: %v", err)
	}
}

func TestThreadTable(t *testing.T) {
	k := newKernel(t, MaxThreads(2))
	boot(t, k, func() {
		for i := 0; i < 10; i++ {
			k.Fork("child", 1, func() {})
			// The child runs, finishes and is destroyed before main
			// returns from Yield.
			k.Current().Yield()
		}
	})
	st := k.Stats()
	if got, want := st.ThreadsCreated, 11; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := st.ThreadsDestroyed, 11; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	k = newKernel(t, MaxThreads(2))
	bootErr(t, k, proctable.ErrTableFull, func() {
		k.Fork("a", 1, func() {})
		k.Fork("b", 1, func() {})
	})
}
