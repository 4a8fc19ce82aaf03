// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This file was auto-generated via go generate.
// DO NOT UPDATE MANUALLY

/*
Command threadtest runs scenarios that exercise the scheduler and the
synchronization primitives of a simulated uniprocessor kernel.

Each scenario runs on its own kernel and the scenarios run concurrently. The
output of each, written by its threads to a synchronized console, is printed in
the order the scenarios were named.

Usage:
   threadtest [flags] [<test> ...]

<test> ... The tests to run: one of inversion, lock, port or all. Defaults to
all.

The threadtest flags are:
 -host-stats=false
   If true, print the resource usage of this process once all tests are done.
 -iterations=10
   The number of times each thread of the lock test yields while holding the
   lock.
 -messages=10
   The number of values sent in the port test.
 -rs=$KERNEL_RANDOM_SEED
   If non-zero, the seed used to preempt threads at random intervals.
 -slice=0
   If positive and -rs is zero, preempt threads every slice ticks.
 -spins=100
   The number of times the medium priority threads of the inversion test yield.
 -stats=false
   If true, print the kernel statistics of each test.
 -threads=5
   The number of threads competing for the lock in the lock test.
 -trace=false
   If true, print the scheduling events of each test.

The global flags are:
 -alsologtostderr=true
   log to standard error as well as files
 -log_backtrace_at=:0
   when logging hits line file:N, emit a stack trace
 -log_dir=
   if non-empty, write log files to this directory
 -logtostderr=false
   log to standard error instead of files
 -max_stack_buf_size=4292608
   max size in bytes of the buffer to use for logging stack traces
 -metadata=<just specify -metadata to activate>
   Displays metadata for the program and exits.
 -stderrthreshold=2
   logs at or above this threshold go to stderr
 -time=false
   Dump timing information to stderr before exiting the program.
 -v=0
   log level for V logs
 -vmodule=
   comma-separated list of pattern=N settings for filename-filtered logging
 -vpath=
   comma-separated list of pattern=N settings for file pathname-filtered logging
*/
package main
