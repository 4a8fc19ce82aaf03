// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"strings"
	"testing"
)

func TestSemaphore(t *testing.T) {
	k := newKernel(t)
	var order []string
	var waiting, afterV int
	var s *Semaphore
	boot(t, k, func() {
		s = NewSemaphore(k, "s", 0)
		for _, n := range []string{"w1", "w2", "w3"} {
			name := n
			k.Fork(name, 1, func() {
				s.P()
				order = append(order, name)
			})
		}
		k.Current().Yield()
		waiting = s.Waiters()
		for i := 0; i < 3; i++ {
			s.V()
		}
		// V does not preempt main, and each woken thread still owns its unit.
		afterV = s.Value()
		k.Current().Yield()
	})
	if got, want := waiting, 3; got != want {
		t.Errorf("got %v waiters, want %v", got, want)
	}
	if got, want := afterV, 3; got != want {
		t.Errorf("got value %v, want %v", got, want)
	}
	if got, want := strings.Join(order, ","), "w1,w2,w3"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := s.Value(); got != 0 {
		t.Errorf("got value %v, want 0", got)
	}
}

func TestSemaphoreCount(t *testing.T) {
	k := newKernel(t)
	var s *Semaphore
	boot(t, k, func() {
		s = NewSemaphore(k, "s", 2)
		s.P()
		s.P()
		s.V()
	})
	if got, want := s.Value(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := s.Waiters(); got != 0 {
		t.Errorf("got %v waiters, want 0", got)
	}
	expectAssertion(t, ErrInvalidArgument, func() { NewSemaphore(k, "bad", -1) })
}

func TestSemaphorePingPong(t *testing.T) {
	k := newKernel(t, RandomSlice(3))
	var order []string
	boot(t, k, func() {
		ping := NewSemaphore(k, "ping", 0)
		pong := NewSemaphore(k, "pong", 0)
		k.Fork("ponger", 0, func() {
			for i := 0; i < 5; i++ {
				ping.P()
				order = append(order, "pong")
				pong.V()
			}
		})
		for i := 0; i < 5; i++ {
			order = append(order, "ping")
			ping.V()
			pong.P()
		}
	})
	if got, want := strings.Join(order, ","), strings.TrimSuffix(strings.Repeat("ping,pong,", 5), ","); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
