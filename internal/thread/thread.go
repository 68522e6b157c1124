// Package thread provides the kernel thread handle. Each thread is a
// goroutine pinned to a simulated core; the handle is passed explicitly
// wherever the kernel needs "the current thread".
package thread

import (
	"runtime"
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/cpu"
	"github.com/giantswarm/kproc/internal/kassert"
)

// Process is the part of a process record a thread binding exposes.
type Process interface {
	PID() int
	Name() string
}

type binding struct {
	p Process
}

var nextID atomic.Uint64

// Thread is a kernel thread.
//
// The process binding is written only with the thread's core at IPLHigh,
// because a timer interrupt on that core reads it to pick the address
// space to activate.
type Thread struct {
	id   uint64
	name string
	cpu  *cpu.CPU

	proc        atomic.Pointer[binding]
	inInterrupt atomic.Bool

	// wake carries at most one pending wakeup from a wait channel.
	wake chan struct{}
	done chan struct{}

	started atomic.Bool
	onExit  func(*Thread)
}

// New returns an unbound thread on core c. The handle can describe the
// calling goroutine directly, or be started later with Start.
func New(name string, c *cpu.CPU) *Thread {
	kassert.That(c != nil, "thread %s created without a cpu", name)
	return &Thread{
		id:   nextID.Add(1),
		name: name,
		cpu:  c,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// ID returns the thread identifier.
func (t *Thread) ID() uint64 { return t.id }

// Name returns the debug name.
func (t *Thread) Name() string { return t.name }

// CPU returns the core the thread runs on.
func (t *Thread) CPU() *cpu.CPU { return t.cpu }

// Proc returns the process the thread is bound to, or nil.
func (t *Thread) Proc() Process {
	if b := t.proc.Load(); b != nil {
		return b.p
	}
	return nil
}

// SetProc replaces the process binding. Callers hold the thread's core at
// IPLHigh.
func (t *Thread) SetProc(p Process) {
	kassert.That(t.cpu.Level() == cpu.IPLHigh, "thread %s: binding changed with interrupts enabled", t.name)
	if p == nil {
		t.proc.Store(nil)
		return
	}
	t.proc.Store(&binding{p: p})
}

// InInterrupt reports whether the thread is running an interrupt handler.
func (t *Thread) InInterrupt() bool {
	return t.inInterrupt.Load()
}

// Interrupt runs handler in interrupt context on the thread's core.
func (t *Thread) Interrupt(handler func()) {
	t.cpu.Deliver(func() {
		t.inInterrupt.Store(true)
		defer t.inInterrupt.Store(false)
		handler()
	})
}

// Start runs fn on a new goroutine. onExit, if non-nil, runs when the
// thread finishes, whether fn returned or the thread called Exit.
func (t *Thread) Start(fn func(*Thread), onExit func(*Thread)) {
	kassert.That(t.started.CompareAndSwap(false, true), "thread %s started twice", t.name)
	t.onExit = onExit
	go func() {
		defer close(t.done)
		defer func() {
			if t.onExit != nil {
				t.onExit(t)
			}
		}()
		fn(t)
	}()
}

// Exit terminates the calling thread. It must run on the thread's own
// goroutine and never returns.
func (t *Thread) Exit() {
	runtime.Goexit()
}

// Done is closed once a started thread has finished.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Park blocks until Unpark is called. Only wait channels park threads.
func (t *Thread) Park() {
	<-t.wake
}

// Unpark releases a parked thread. A thread is unparked at most once per
// Park; a second pending wakeup is fatal.
func (t *Thread) Unpark() {
	select {
	case t.wake <- struct{}{}:
	default:
		kassert.Fatalf("thread %s: double wakeup", t.name)
	}
}
