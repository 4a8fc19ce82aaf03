// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"

	"v.io/x/lib/cmdline"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	env := &cmdline.Env{Stdout: &buf, Stderr: &buf}
	err := cmdline.ParseAndRun(cmdThreadTest, env, args)
	return buf.String(), err
}

func TestLock(t *testing.T) {
	out, err := run(t, "-threads=2", "-iterations=2", "-rs=0", "-stats", "lock")
	if err != nil {
		t.Fatalf("threadtest failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"lock (kernel ",
		"*** Thread `thread_0` is running: iteration 1",
		"!!! Thread `thread_1` has finished",
		"Statistics:",
		"context-switches",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Events:") {
		t.Errorf("unexpected trace:\n%s", out)
	}
}

func TestAll(t *testing.T) {
	out, err := run(t, "-threads=5", "-iterations=10", "-rs=31", "-trace", "-stats=false")
	if err != nil {
		t.Fatalf("threadtest failed: %v\n%s", err, out)
	}
	// Results are printed in order.
	ix := []int{
		strings.Index(out, "inversion (kernel "),
		strings.Index(out, "lock (kernel "),
		strings.Index(out, "port (kernel "),
	}
	for i, x := range ix {
		if x < 0 || (i > 0 && x < ix[i-1]) {
			t.Fatalf("tests missing or out of order %v:\n%s", ix, out)
		}
	}
	for _, want := range []string{"A: got the lock", "After Join()", "Events:", "boost"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestErrors(t *testing.T) {
	if _, err := run(t, "nosuchtest"); err == nil {
		t.Errorf("unknown test accepted")
	}
	if _, err := run(t, "-spins=0", "inversion"); err == nil {
		t.Errorf("invalid configuration accepted")
	}
	// Reset for the other tests.
	flagValues.Spins = 100
}

func TestSeedFromEnv(t *testing.T) {
	t.Setenv(EnvRandomSeed, "17")
	if got, want := seedFromEnv(), int64(17); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	t.Setenv(EnvRandomSeed, "not a number")
	if got := seedFromEnv(); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
