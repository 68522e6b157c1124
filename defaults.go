package kproc

import "time"

// Default configuration values for Boot.
const (
	// DefaultMaxProcesses is the process table capacity: pids range over
	// [1, DefaultMaxProcesses].
	DefaultMaxProcesses = 100

	// DefaultCPUs is the number of simulated cores.
	DefaultCPUs = 1

	// DefaultAccountingTimeout bounds opening the accounting journal and
	// each record written to it.
	DefaultAccountingTimeout = 5 * time.Second

	// DefaultDrainInterval is how often Drain polls the process table.
	DefaultDrainInterval = 10 * time.Millisecond
)
