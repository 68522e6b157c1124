package kproc

import (
	"context"
	"time"
)

// Kernel is a booted simulated kernel.
//
// Lifecycle:
//
//	Boot → RunProgram / CreateProcess / Fork ... Wait → Shutdown
//
// Methods that take a cur *Thread act on behalf of that thread; most
// callers pass Menu() when acting as the kernel itself.
type Kernel interface {
	// Menu returns the kernel menu thread, bound to the kernel process.
	Menu() *Thread

	// CreateProcess registers a new process with no threads, address
	// space, or working directory. Returns ErrProcessTableFull when no
	// pid is free.
	CreateProcess(name string) (*Process, error)

	// CreateProcessForProgram is CreateProcess with the working directory
	// inherited from cur's process.
	CreateProcessForProgram(cur *Thread, name string) (*Process, error)

	// AddThread attaches t, which must belong to no process, to p.
	AddThread(p *Process, t *Thread) error

	// RemoveThread detaches t from its process.
	RemoveThread(t *Thread)

	// NewThread returns an unstarted, unbound thread on the next core.
	NewThread(name string) *Thread

	// Fork attaches a new thread to p and runs fn on it. The thread
	// detaches itself when fn returns.
	Fork(p *Process, name string, fn func(*Thread)) (*Thread, error)

	// AddressSpace returns the address space of cur's process.
	AddressSpace(cur *Thread) *AddressSpace

	// SetAddressSpace installs as in cur's process and returns the old one.
	SetAddressSpace(cur *Thread, as *AddressSpace) *AddressSpace

	// Chdir makes v, which may be nil, the working directory of cur's
	// process. The process takes its own reference on v.
	Chdir(cur *Thread, v *Vnode)

	// Destroy frees p, which must have no threads and no other users.
	Destroy(cur *Thread, p *Process)

	// Exit records status&0xff for t's process, detaches t, wakes the
	// waiter, and terminates t. It never returns.
	Exit(t *Thread, status int)

	// Wait blocks cur until p exits, destroys p, and returns its status.
	Wait(cur *Thread, p *Process) uint8

	// WaitPID is Wait by pid. Returns ErrInvalidPID or ErrNoSuchProcess
	// instead of blocking when pid names no live process.
	WaitPID(cur *Thread, pid int) (uint8, error)

	// Lookup returns the live process with the given pid, or nil.
	// Panics if pid is outside [0, max processes].
	Lookup(pid int) *Process

	// Processes lists the records in the process table.
	Processes() []ProcessInfo

	// RunProgram starts prog as a new process with its own address space.
	RunProgram(name string, prog Program) (*Process, error)

	// Syscalls returns the system call handler.
	Syscalls() *Syscalls

	// TimerTick delivers a timer interrupt on cur's core.
	TimerTick(cur *Thread)

	// Accounting returns the accounting journal, oldest first. It returns
	// nil when accounting is disabled.
	Accounting(ctx context.Context) ([]AccountingEntry, error)

	// Drain waits until every process has been reaped.
	Drain(ctx context.Context, timeout time.Duration) error

	// Shutdown stops accepting programs and closes the journal.
	Shutdown() error
}
