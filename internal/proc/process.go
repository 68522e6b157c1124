package proc

import (
	"sync/atomic"
	"time"

	"github.com/giantswarm/kproc/internal/spinlock"
	"github.com/giantswarm/kproc/internal/synch"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/vfs"
	"github.com/giantswarm/kproc/internal/vm"
)

var _ thread.Process = (*Process)(nil)

// Process is a process record.
//
// lk guards threads, as, cwd, status, exited, and exitedAt. It is held only
// to read or swap those fields, never across a blocking call. pid and name
// are fixed once the record is registered.
type Process struct {
	pid  int
	name string

	lk       spinlock.Spinlock
	threads  int
	as       *vm.AddressSpace
	cwd      *vfs.Vnode
	status   uint8
	exited   bool
	exitedAt time.Time

	// exitSem is V'd once by Exit and P'd once by the reaping Wait.
	exitSem   *synch.Semaphore
	createdAt time.Time
	destroyed atomic.Bool
}

func newProcess(name string, now time.Time) *Process {
	return &Process{
		name:      name,
		exitSem:   synch.NewSemaphore(name, 0),
		createdAt: now,
	}
}

// PID returns the process identifier. The kernel process has pid 0.
func (p *Process) PID() int { return p.pid }

// Name returns the debug name.
func (p *Process) Name() string { return p.name }

// CreatedAt returns when the record was created.
func (p *Process) CreatedAt() time.Time { return p.createdAt }

// ThreadCount returns the number of attached threads.
func (p *Process) ThreadCount() int {
	defer p.lk.Release(p.lk.Acquire())
	return p.threads
}

// Cwd returns the working directory, or nil.
func (p *Process) Cwd() *vfs.Vnode {
	defer p.lk.Release(p.lk.Acquire())
	return p.cwd
}

// Info is a point-in-time view of a process record.
type Info struct {
	PID       int
	Name      string
	Threads   int
	Exited    bool
	Status    uint8
	CreatedAt time.Time
	ExitedAt  time.Time
}

// Info returns a snapshot of the record.
func (p *Process) Info() Info {
	defer p.lk.Release(p.lk.Acquire())
	return Info{
		PID:       p.pid,
		Name:      p.name,
		Threads:   p.threads,
		Exited:    p.exited,
		Status:    p.status,
		CreatedAt: p.createdAt,
		ExitedAt:  p.exitedAt,
	}
}
