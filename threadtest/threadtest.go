// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threadtest contains scenarios that exercise the thread system of
// a threads.Kernel and report what happened on a synchronized console.
package threadtest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"v.io/v23/context"
	"v.io/v23/verror"
	"v.io/x/ref/lib/kernel/synchconsole"
	"v.io/x/ref/lib/kernel/threads"
	"v.io/x/ref/lib/kernel/trace"
)

var (
	ErrUnknownTest   = verror.NewID("UnknownTest")
	ErrInvalidConfig = verror.NewID("InvalidConfig")
)

// Config parameterizes the scenarios.
type Config struct {
	// Threads is the number of threads competing for the lock in the lock
	// scenario.
	Threads int
	// Iterations is the number of times each of them yields while holding
	// the lock.
	Iterations int
	// Messages is the number of values sent in the port scenario.
	Messages int
	// Spins is the number of times the medium priority threads of the
	// inversion scenario yield before finishing.
	Spins int
}

// DefaultConfig matches the flag defaults of the threadtest command.
var DefaultConfig = Config{Threads: 5, Iterations: 10, Messages: 10, Spins: 100}

func (c Config) validate(ctx *context.T) error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"threads", c.Threads},
		{"iterations", c.Iterations},
		{"messages", c.Messages},
		{"spins", c.Spins},
	} {
		if f.v <= 0 {
			return ErrInvalidConfig.Errorf(ctx, "%s must be positive, not %d", f.name, f.v)
		}
	}
	return nil
}

// Env is what a scenario runs with: the kernel, a console that writes to
// the scenario's output and the configuration.
type Env struct {
	K       *threads.Kernel
	Console *synchconsole.Console
	Config  Config
}

// Printf writes a message to the console.
func (e *Env) Printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(e.Console, format, args...); err != nil {
		e.K.Context().Errorf("console: %v", err)
	}
}

// Test is a scenario. Main runs as the kernel's main thread.
type Test struct {
	Name        string
	Description string
	Main        func(env *Env)
}

// Result describes a run of a scenario.
type Result struct {
	Name   string
	ID     uuid.UUID
	Output string
	Stats  threads.Stats
	Events []trace.Event
}

// Tests lists the scenarios, sorted by name.
var Tests = []Test{
	{
		Name:        "inversion",
		Description: "a high priority thread needs a lock held by a low priority thread while medium priority threads want the CPU",
		Main:        inversion,
	},
	{
		Name:        "lock",
		Description: "threads take turns holding a lock, yielding while they hold it",
		Main:        lockPingPong,
	},
	{
		Name:        "port",
		Description: "a producer sends values over a port to two consumers and is joined by main",
		Main:        producerConsumers,
	},
}

// Lookup returns the scenario with the given name.
func Lookup(name string) (Test, bool) {
	i := sort.Search(len(Tests), func(i int) bool { return Tests[i].Name >= name })
	if i < len(Tests) && Tests[i].Name == name {
		return Tests[i], true
	}
	return Test{}, false
}

// Names returns the names of the scenarios.
func Names() []string {
	names := make([]string, len(Tests))
	for i, t := range Tests {
		names[i] = t.Name
	}
	return names
}

// Run boots a kernel configured with opts, runs the named scenario on it and
// returns its results once the kernel has halted.
func Run(ctx *context.T, name string, cfg Config, opts ...threads.Opt) (Result, error) {
	test, ok := Lookup(name)
	if !ok {
		return Result{}, ErrUnknownTest.Errorf(ctx, "unknown test %q, want one of %v", name, Names())
	}
	if err := cfg.validate(ctx); err != nil {
		return Result{}, err
	}
	rec := trace.NewRecorder()
	var out bytes.Buffer
	k := threads.New(ctx, append(opts, threads.WithRecorder(rec))...)
	ctx.VI(1).Infof("running %q on kernel %v", name, k.ID())
	err := k.Boot(func() {
		test.Main(&Env{
			K:       k,
			Console: synchconsole.New(k, nil, &out),
			Config:  cfg,
		})
	})
	return Result{
		Name:   name,
		ID:     k.ID(),
		Output: out.String(),
		Stats:  k.Stats(),
		Events: rec.Events(),
	}, err
}
