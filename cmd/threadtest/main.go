// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The following enables go generate to generate the doc.go file.
//go:generate go run v.io/x/lib/cmdline/gendoc . -help

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"v.io/v23/context"
	"v.io/x/lib/cmd/flagvar"
	"v.io/x/lib/cmdline"
	"v.io/x/ref/internal/logger"
	"v.io/x/ref/lib/kernel/threads"
	"v.io/x/ref/lib/kernel/threadtest"
	libstats "v.io/x/ref/lib/stats"
)

// EnvRandomSeed is the name of the environment variable that provides the
// default value of the -rs flag.
const EnvRandomSeed = "KERNEL_RANDOM_SEED"

var flagValues struct {
	Seed       int64 `cmdline:"rs,,'If non-zero, the seed used to preempt threads at random intervals.'"`
	Slice      int64 `cmdline:"slice,0,'If positive and -rs is zero, preempt threads every slice ticks.'"`
	Threads    int   `cmdline:"threads,5,The number of threads competing for the lock in the lock test."`
	Iterations int   `cmdline:"iterations,10,The number of times each thread of the lock test yields while holding the lock."`
	Messages   int   `cmdline:"messages,10,The number of values sent in the port test."`
	Spins      int   `cmdline:"spins,100,The number of times the medium priority threads of the inversion test yield."`
	Stats      bool  `cmdline:"stats,false,'If true, print the kernel statistics of each test.'"`
	HostStats  bool  `cmdline:"host-stats,false,'If true, print the resource usage of this process once all tests are done.'"`
	Trace      bool  `cmdline:"trace,false,'If true, print the scheduling events of each test.'"`
}

var cmdThreadTest = &cmdline.Command{
	Runner: cmdline.RunnerFunc(runThreadTest),
	Name:   "threadtest",
	Short:  "runs thread system scenarios on a simulated uniprocessor",
	Long: `
Command threadtest runs scenarios that exercise the scheduler and the
synchronization primitives of a simulated uniprocessor kernel.

Each scenario runs on its own kernel and the scenarios run concurrently. The
output of each, written by its threads to a synchronized console, is printed
in the order the scenarios were named.
`,
	ArgsName: "[<test> ...]",
	ArgsLong: "<test> ... The tests to run: one of " + strings.Join(threadtest.Names(), ", ") + " or all. Defaults to all.",
}

func init() {
	err := flagvar.RegisterFlagsInStruct(&cmdThreadTest.Flags, "cmdline", &flagValues,
		map[string]interface{}{
			"rs": seedFromEnv(),
		},
		map[string]string{
			"rs": "$" + EnvRandomSeed,
		})
	if err != nil {
		// panic since this is clearly a programming error.
		panic(err)
	}
}

func seedFromEnv() int64 {
	seed, err := strconv.ParseInt(os.Getenv(EnvRandomSeed), 10, 64)
	if err != nil {
		return 0
	}
	return seed
}

func main() {
	cmdline.Main(cmdThreadTest)
}

func testNames(args []string) ([]string, error) {
	if len(args) == 0 {
		return threadtest.Names(), nil
	}
	var names []string
	for _, a := range args {
		if a == "all" {
			names = append(names, threadtest.Names()...)
			continue
		}
		if _, ok := threadtest.Lookup(a); !ok {
			return nil, fmt.Errorf("unknown test %q", a)
		}
		names = append(names, a)
	}
	return names, nil
}

func kernelOpts() []threads.Opt {
	switch {
	case flagValues.Seed != 0:
		return []threads.Opt{threads.RandomSlice(flagValues.Seed)}
	case flagValues.Slice > 0:
		return []threads.Opt{threads.TimeSlice(flagValues.Slice)}
	}
	return nil
}

func runThreadTest(env *cmdline.Env, args []string) error {
	names, err := testNames(args)
	if err != nil {
		return env.UsageErrorf("%v", err)
	}
	ctx, cancel := context.RootContext()
	defer cancel()
	if err := logger.Global().ConfigureFromFlags(); err != nil && !logger.IsAlreadyConfiguredError(err) {
		return err
	}
	ctx = context.WithLogger(ctx, logger.Global())

	cfg := threadtest.Config{
		Threads:    flagValues.Threads,
		Iterations: flagValues.Iterations,
		Messages:   flagValues.Messages,
		Spins:      flagValues.Spins,
	}
	results := make([]threadtest.Result, len(names))
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			res, err := threadtest.Run(ctx, name, cfg, kernelOpts()...)
			if errors.Is(err, threadtest.ErrInvalidConfig) {
				return err
			}
			// A kernel that failed still produced output worth printing.
			results[i], errs[i] = res, err
			exportStats(i, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return env.UsageErrorf("%v", err)
	}

	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", ruleWidth(env.Stdout))
	var failed []string
	for i, res := range results {
		fmt.Fprintf(env.Stdout, "%s\n%s (kernel %v)\n%s\n", rule, res.Name, res.ID, rule)
		fmt.Fprint(env.Stdout, res.Output)
		if flagValues.Stats {
			if err := printStats(p, env.Stdout, i); err != nil {
				return err
			}
		}
		if flagValues.Trace {
			fmt.Fprintln(env.Stdout, "Events:")
			for _, e := range res.Events {
				fmt.Fprintf(env.Stdout, "  %v\n", e)
			}
		}
		if errs[i] != nil {
			fmt.Fprintf(env.Stderr, "%s: %v\n", res.Name, errs[i])
			failed = append(failed, res.Name)
		}
	}
	if flagValues.HostStats {
		printHostStats(p, env.Stdout)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed: %v", strings.Join(failed, ", "))
	}
	return nil
}

func statsPrefix(i int) string {
	return fmt.Sprintf("kernel/%d", i)
}

// exportStats publishes the statistics of the i'th run.
func exportStats(i int, res threadtest.Result) {
	prefix := statsPrefix(i) + "/"
	for _, s := range []struct {
		name  string
		value int64
	}{
		{"ticks/total", res.Stats.TotalTicks},
		{"ticks/idle", res.Stats.IdleTicks},
		{"ticks/system", res.Stats.SystemTicks},
		{"context-switches", int64(res.Stats.ContextSwitches)},
		{"threads/created", int64(res.Stats.ThreadsCreated)},
		{"threads/destroyed", int64(res.Stats.ThreadsDestroyed)},
	} {
		libstats.NewInteger(prefix + s.name).Set(s.value)
	}
}

func printStats(p *message.Printer, w io.Writer, i int) error {
	fmt.Fprintln(w, "Statistics:")
	it := libstats.Glob(statsPrefix(i), "...", time.Time{}, true)
	for it.Advance() {
		kv := it.Value()
		if kv.Key == "" || kv.Value == nil {
			continue
		}
		p.Fprintf(w, "  %-18s %d\n", kv.Key, kv.Value)
	}
	return it.Err()
}

func printHostStats(p *message.Printer, w io.Writer) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		fmt.Fprintf(w, "host statistics unavailable: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Host:")
	if mem, err := proc.MemoryInfo(); err == nil {
		p.Fprintf(w, "  %-18s %d\n", "rss", mem.RSS)
	}
	if times, err := proc.Times(); err == nil {
		p.Fprintf(w, "  %-18s %.2fs\n", "cpu/user", times.User)
		p.Fprintf(w, "  %-18s %.2fs\n", "cpu/system", times.System)
	}
}

// ruleWidth returns the width of the terminal w writes to, or a default if
// w is not a terminal.
func ruleWidth(w io.Writer) int {
	const def = 72
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return def
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		return width
	}
	return def
}
