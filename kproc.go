package kproc

import (
	"context"
	"time"

	"github.com/giantswarm/kproc/internal/kernel"
)

var _ Kernel = (*kernelWrapper)(nil)

// kernelWrapper implements Kernel over kernel.Kernel. The kernel is held in
// a named field, not embedded, so type assertions cannot reach methods
// outside the Kernel interface.
type kernelWrapper struct {
	k *kernel.Kernel
}

// Boot brings up a kernel configured by opts.
//
// Panics if an option receives an invalid value. Returns an error if the
// accounting journal cannot be opened, e.g. because another kernel holds
// it past the accounting timeout.
//
//nolint:ireturn // Returns Kernel interface by design.
func Boot(ctx context.Context, opts ...Option) (Kernel, error) {
	cfg := defaultKernelConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	k, err := kernel.Boot(ctx, cfg.Config)
	if err != nil {
		return nil, err
	}
	return &kernelWrapper{k: k}, nil
}

func (w *kernelWrapper) Menu() *Thread {
	return w.k.Menu()
}

func (w *kernelWrapper) CreateProcess(name string) (*Process, error) {
	return w.k.Procs().Create(name)
}

func (w *kernelWrapper) CreateProcessForProgram(cur *Thread, name string) (*Process, error) {
	return w.k.Procs().CreateForProgram(cur, name)
}

func (w *kernelWrapper) AddThread(p *Process, t *Thread) error {
	return w.k.Procs().AddThread(p, t)
}

func (w *kernelWrapper) RemoveThread(t *Thread) {
	w.k.Procs().RemoveThread(t)
}

func (w *kernelWrapper) NewThread(name string) *Thread {
	return w.k.NewThread(name)
}

func (w *kernelWrapper) Fork(p *Process, name string, fn func(*Thread)) (*Thread, error) {
	return w.k.Fork(p, name, fn)
}

func (w *kernelWrapper) AddressSpace(cur *Thread) *AddressSpace {
	return w.k.Procs().AddressSpace(cur)
}

func (w *kernelWrapper) SetAddressSpace(cur *Thread, as *AddressSpace) *AddressSpace {
	return w.k.Procs().SetAddressSpace(cur, as)
}

func (w *kernelWrapper) Chdir(cur *Thread, v *Vnode) {
	w.k.Procs().Chdir(cur, v)
}

func (w *kernelWrapper) Destroy(cur *Thread, p *Process) {
	w.k.Procs().Destroy(cur, p)
}

func (w *kernelWrapper) Exit(t *Thread, status int) {
	w.k.Procs().Exit(t, status)
}

func (w *kernelWrapper) Wait(cur *Thread, p *Process) uint8 {
	return w.k.Procs().Wait(cur, p)
}

func (w *kernelWrapper) WaitPID(cur *Thread, pid int) (uint8, error) {
	return w.k.Procs().WaitPID(cur, pid)
}

func (w *kernelWrapper) Lookup(pid int) *Process {
	return w.k.Procs().Lookup(pid)
}

func (w *kernelWrapper) Processes() []ProcessInfo {
	return w.k.Procs().Processes()
}

func (w *kernelWrapper) RunProgram(name string, prog Program) (*Process, error) {
	return w.k.RunProgram(name, prog)
}

func (w *kernelWrapper) Syscalls() *Syscalls {
	return w.k.Syscalls()
}

func (w *kernelWrapper) TimerTick(cur *Thread) {
	w.k.Procs().TimerTick(cur)
}

func (w *kernelWrapper) Accounting(ctx context.Context) ([]AccountingEntry, error) {
	return w.k.Accounting(ctx)
}

func (w *kernelWrapper) Drain(ctx context.Context, timeout time.Duration) error {
	return w.k.Drain(ctx, timeout)
}

func (w *kernelWrapper) Shutdown() error {
	return w.k.Shutdown()
}
