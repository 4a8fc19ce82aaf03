// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threadtest

import (
	"fmt"

	"v.io/x/ref/lib/kernel/threads"
)

func lockPingPong(env *Env) {
	k := env.K
	lock := threads.NewLock(k, "lock1")
	for i := 0; i < env.Config.Threads; i++ {
		name := fmt.Sprintf("thread_%d", i)
		k.Fork(name, 1, func() {
			lock.Acquire()
			for n := 0; n < env.Config.Iterations; n++ {
				env.Printf("*** Thread `%s` is running: iteration %d\n", name, n)
				k.Current().Yield()
			}
			lock.Release()
			env.Printf("!!! Thread `%s` has finished\n", name)
		})
	}
}

// inversion sets up a priority inversion: B (2) holds the lock that A (8)
// needs while two M threads (5) are ready. With priority inheritance A gets
// the lock, and finishes, before either M is done.
func inversion(env *Env) {
	k := env.K
	lock := threads.NewLock(k, "lock")
	aReady := threads.NewSemaphore(k, "aReady", 0)
	mReady := threads.NewSemaphore(k, "mReady", 0)
	k.Fork("A", 8, func() {
		aReady.P()
		lock.Acquire()
		lock.Release()
		env.Printf("A: got the lock\n")
	})
	k.Fork("B", 2, func() {
		lock.Acquire()
		aReady.V()
		mReady.V()
		mReady.V()
		k.Current().Yield()
		lock.Release()
		env.Printf("B: released the lock\n")
	})
	for i := 0; i < 2; i++ {
		k.Fork("M", 5, func() {
			mReady.P()
			for n := 0; n < env.Config.Spins; n++ {
				k.Current().Yield()
			}
			env.Printf("M: done spinning\n")
		})
	}
}

func producerConsumers(env *Env) {
	k := env.K
	port := threads.NewPort(k, "8000")
	producer := k.Fork("Producer", 3, func() {
		for i := 0; i < env.Config.Messages; i++ {
			env.Printf("Producer: sending 42\n")
			port.Send(42)
		}
	}, threads.Joinable())
	// The consumers share the messages so that every receive is matched.
	share := []int{env.Config.Messages / 2, env.Config.Messages - env.Config.Messages/2}
	for i, n := range share {
		name := fmt.Sprintf("Consumer%d", i+1)
		n := n
		k.Fork(name, 3, func() {
			for j := 0; j < n; j++ {
				v := port.Receive()
				env.Printf("%s: received %d\n", name, v)
			}
		})
	}
	env.Printf("Before Join()\n")
	producer.Join()
	env.Printf("After Join()\n")
}
