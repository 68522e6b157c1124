package kproc

import (
	"fmt"
	"io"
	"time"
)

func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("kproc: %s must be greater than 0, got %v", name, v))
	}
}

// Option configures Boot.
//
// With* functions panic on invalid values: they are normally literals in
// the caller's code, so a bad value is a programming error.
type Option func(*kernelConfig)

// WithMaxProcesses sets the process table capacity.
//
// Default: 100.
//
// Panics if n <= 0.
func WithMaxProcesses(n int) Option {
	requirePositive("max processes", n)
	return func(c *kernelConfig) {
		c.MaxProcesses = n
	}
}

// WithCPUs sets the number of simulated cores. Program threads are placed
// on cores round-robin.
//
// Default: 1.
//
// Panics if n <= 0.
func WithCPUs(n int) Option {
	requirePositive("cpu count", n)
	return func(c *kernelConfig) {
		c.CPUs = n
	}
}

// WithAccountingDB enables the accounting journal: every reaped process is
// appended to the SQLite database at path. The kernel holds an exclusive
// lock on path+".lock" until Shutdown.
//
// Panics if path is empty.
func WithAccountingDB(path string) Option {
	if path == "" {
		panic("kproc: accounting database path must not be empty")
	}
	return func(c *kernelConfig) {
		c.AccountingDB = path
	}
}

// WithAccountingTimeout bounds opening the journal, including waiting for
// another kernel to release its lock, and each record written.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithAccountingTimeout(d time.Duration) Option {
	requirePositive("accounting timeout", d)
	return func(c *kernelConfig) {
		c.AccountingTimeout = d
	}
}

// WithDrainInterval sets how often Drain polls the process table.
//
// Default: 10 milliseconds.
//
// Panics if d <= 0.
func WithDrainInterval(d time.Duration) Option {
	requirePositive("drain interval", d)
	return func(c *kernelConfig) {
		c.DrainInterval = d
	}
}

// WithConsole sets the console device behind stdin and stdout/stderr.
//
// Default: os.Stdin and os.Stdout.
//
// Panics if in or out is nil.
func WithConsole(in io.Reader, out io.Writer) Option {
	if in == nil || out == nil {
		panic("kproc: console reader and writer must not be nil")
	}
	return func(c *kernelConfig) {
		c.Stdin = in
		c.Stdout = out
	}
}
