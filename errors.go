package kproc

import (
	"github.com/giantswarm/kproc/internal/kernel"
	"github.com/giantswarm/kproc/internal/proc"
	"github.com/giantswarm/kproc/internal/syscalls"
)

// Sentinel errors for errors.Is. Only recoverable conditions are errors;
// broken invariants panic.
const (
	// ErrProcessTableFull is returned by process creation when every pid
	// is in use. Nothing is left behind by the failed creation.
	ErrProcessTableFull = proc.ErrProcessTableFull

	// ErrNoSuchProcess is returned by WaitPID for a pid that was never
	// allocated or has already been reaped.
	ErrNoSuchProcess = proc.ErrNoSuchProcess

	// ErrInvalidPID is returned by WaitPID for a pid outside the table.
	ErrInvalidPID = proc.ErrInvalidPID

	// ErrUnsupportedFD is returned, with a count of -1, by console reads
	// and writes on a descriptor the console does not serve.
	ErrUnsupportedFD = syscalls.ErrUnsupportedFD

	// ErrShutDown is returned by RunProgram after Shutdown.
	ErrShutDown = kernel.ErrShutDown

	// ErrTimeoutNotPositive is returned by Drain for a timeout <= 0.
	ErrTimeoutNotPositive = kernel.ErrTimeoutNotPositive
)
