// kprocsim boots a simulated kernel, runs a batch of user programs on it
// concurrently, reaps them, and prints their exit statuses.
//
// Usage:
//
//	kprocsim [options]
//
// Options:
//
//	-n count     Number of programs to run (default 8)
//	-cpus count  Number of simulated cores (default 2)
//	-max count   Process table capacity (default 100)
//	-db path     Record reaped programs in an SQLite accounting journal
//	-v           Debug logging
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/kproc"
)

type result struct {
	pid    int
	name   string
	status uint8
}

func main() {
	n := flag.Int("n", 8, "Number of programs to run")
	cpus := flag.Int("cpus", 2, "Number of simulated cores")
	maxProc := flag.Int("max", kproc.DefaultMaxProcesses, "Process table capacity")
	db := flag.String("db", "", "SQLite accounting journal path")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if err := run(*n, *cpus, *maxProc, *db, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "kprocsim: %s\n", err)
		os.Exit(1)
	}
}

func run(n, cpus, maxProc int, db string, verbose bool) error {
	if n < 0 || cpus < 1 || maxProc < 1 {
		return fmt.Errorf("invalid flags: -n %d -cpus %d -max %d", n, cpus, maxProc)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	kproc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []kproc.Option{
		kproc.WithCPUs(cpus),
		kproc.WithMaxProcesses(maxProc),
		kproc.WithConsole(os.Stdin, os.Stdout),
	}
	if db != "" {
		opts = append(opts, kproc.WithAccountingDB(db))
	}

	ctx := context.Background()
	k, err := kproc.Boot(ctx, opts...)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	defer func() {
		if err := k.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "kprocsim: shutdown: %s\n", err)
		}
	}()

	results := make([]result, n)

	// Each goroutine holds at most one table slot, so capping the group at
	// the table capacity keeps RunProgram from ever seeing a full table.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxProc)
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := fmt.Sprintf("prog%d", i)
			p, err := k.RunProgram(name, greeter(i))
			if err != nil {
				return err
			}
			pid := p.PID()
			status := k.Wait(k.NewThread("reaper-"+name), p)
			results[i] = result{pid: pid, name: name, status: status}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := k.Drain(ctx, time.Second); err != nil {
		return err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].name < results[b].name })
	for _, r := range results {
		fmt.Printf("%-8s pid %3d exited %3d\n", r.name, r.pid, r.status)
	}

	return printAccounting(ctx, k)
}

// greeter returns a program that prints its pid and exits with a status
// derived from i.
func greeter(i int) kproc.Program {
	return func(t *kproc.Thread, sys *kproc.Syscalls) {
		msg := fmt.Sprintf("hello from pid %d on cpu%d\n", sys.GetPID(t), t.CPU().ID())
		if _, err := sys.Write(kproc.StdoutFD, []byte(msg)); err != nil {
			sys.Exit(t, 1)
		}
		sys.Exit(t, i*7)
	}
}

func printAccounting(ctx context.Context, k kproc.Kernel) error {
	entries, err := k.Accounting(ctx)
	if err != nil {
		return fmt.Errorf("read accounting: %w", err)
	}
	if entries == nil {
		return nil
	}
	fmt.Printf("\naccounting journal: %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Printf("%s pid %3d %-8s status %3d ran %s\n",
			e.ReapedAt.Format(time.RFC3339), e.PID, e.Name, e.Status, e.ExitedAt.Sub(e.CreatedAt))
	}
	return nil
}
