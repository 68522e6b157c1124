package kproc

import (
	"github.com/giantswarm/kproc/internal/acct"
	"github.com/giantswarm/kproc/internal/kernel"
	"github.com/giantswarm/kproc/internal/proc"
	"github.com/giantswarm/kproc/internal/synch"
	"github.com/giantswarm/kproc/internal/syscalls"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/vfs"
	"github.com/giantswarm/kproc/internal/vm"
)

// Type aliases keep the internal method sets part of the public API.
type (
	// Thread is a kernel thread.
	Thread = thread.Thread
	// Process is a process record.
	Process = proc.Process
	// ProcessInfo is a snapshot of a process record.
	ProcessInfo = proc.Info
	// AddressSpace is an owned virtual memory context.
	AddressSpace = vm.AddressSpace
	// Vnode is a reference-counted filesystem node.
	Vnode = vfs.Vnode
	// Syscalls is the system call handler.
	Syscalls = syscalls.Handler
	// Program is the body of a user program.
	Program = kernel.Program
	// AccountingEntry is one reaped process in the journal.
	AccountingEntry = acct.Entry

	// Semaphore is a counting semaphore.
	Semaphore = synch.Semaphore
	// Lock is a sleeping mutual-exclusion lock with an owner.
	Lock = synch.Lock
	// CV is a condition variable.
	CV = synch.CV
)

// Standard console descriptors.
const (
	StdinFD  = syscalls.StdinFD
	StdoutFD = syscalls.StdoutFD
	StderrFD = syscalls.StderrFD
)

// NewSemaphore returns a semaphore holding count units.
func NewSemaphore(name string, count uint) *Semaphore {
	return synch.NewSemaphore(name, count)
}

// NewLock returns an unowned lock.
func NewLock(name string) *Lock {
	return synch.NewLock(name)
}

// NewCV returns a condition variable.
func NewCV(name string) *CV {
	return synch.NewCV(name)
}

// NewAddressSpace returns a fresh address space.
func NewAddressSpace() *AddressSpace {
	return vm.Create()
}

// NewVnode returns a vnode for path holding one reference for the caller.
func NewVnode(path string) *Vnode {
	return vfs.NewVnode(path)
}
