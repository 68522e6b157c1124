package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/acct"
	"github.com/giantswarm/kproc/internal/cpu"
	"github.com/giantswarm/kproc/internal/proc"
	"github.com/giantswarm/kproc/internal/sentinel"
	"github.com/giantswarm/kproc/internal/syscalls"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/vfs"
	"github.com/giantswarm/kproc/internal/vm"
)

// ErrShutDown is returned by RunProgram after Shutdown.
const ErrShutDown = sentinel.Error("kernel is shut down")

// Kernel is a booted kernel. It is safe for concurrent use by multiple
// goroutines.
type Kernel struct {
	cfg Config

	cpus    []*cpu.CPU
	nextCPU atomic.Uint64

	procs   *proc.Manager
	sys     *syscalls.Handler
	journal *acct.Journal
	menu    *thread.Thread

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error

	log *slog.Logger
}

// Boot validates cfg and brings up a kernel. The kernel process gets the
// root directory as its cwd and a "menu" thread on cpu0 that callers use
// as the current thread for kernel-level work.
func Boot(ctx context.Context, cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel config: %w", err)
	}

	log := Logger()
	k := &Kernel{cfg: cfg, log: log}

	var recorder proc.Recorder
	if cfg.AccountingDB != "" {
		openCtx, cancel := context.WithTimeout(ctx, cfg.AccountingTimeout)
		j, err := acct.Open(openCtx, cfg.AccountingDB, log)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("open accounting journal: %w", err)
		}
		k.journal = j
		recorder = j
	}

	k.cpus = make([]*cpu.CPU, cfg.CPUs)
	for i := range k.cpus {
		k.cpus[i] = cpu.New(i)
	}

	k.procs = proc.NewManager(proc.Config{
		MaxProc:       cfg.MaxProcesses,
		Logger:        log,
		Recorder:      recorder,
		RecordTimeout: cfg.AccountingTimeout,
	})
	k.procs.SetKernelCwd(vfs.NewVnode("/"))

	k.menu = thread.New("menu", k.cpus[0])
	if err := k.procs.AddThread(k.procs.Kernel(), k.menu); err != nil {
		return nil, fmt.Errorf("attach menu thread: %w", err)
	}

	k.sys = syscalls.NewHandler(k.procs, syscalls.NewConsole(cfg.Stdin, cfg.Stdout), log)

	log.Info("kernel booted", "cpus", cfg.CPUs, "max_processes", cfg.MaxProcesses,
		"accounting", cfg.AccountingDB != "")
	return k, nil
}

// Menu returns the kernel menu thread.
func (k *Kernel) Menu() *thread.Thread { return k.menu }

// Procs returns the process manager.
func (k *Kernel) Procs() *proc.Manager { return k.procs }

// Syscalls returns the system call handler.
func (k *Kernel) Syscalls() *syscalls.Handler { return k.sys }

// Journal returns the accounting journal, or nil when accounting is off.
func (k *Kernel) Journal() *acct.Journal { return k.journal }

// CPUs returns the cores.
func (k *Kernel) CPUs() []*cpu.CPU { return k.cpus }

// NextCPU returns the next core in round-robin order.
func (k *Kernel) NextCPU() *cpu.CPU {
	return k.cpus[k.nextCPU.Add(1)%uint64(len(k.cpus))]
}

// NewThread returns an unstarted, unbound thread on the next core.
func (k *Kernel) NewThread(name string) *thread.Thread {
	return thread.New(name, k.NextCPU())
}

// Fork starts fn on a new thread of p on the next core in rotation.
func (k *Kernel) Fork(p *proc.Process, name string, fn func(*thread.Thread)) (*thread.Thread, error) {
	return k.procs.Fork(p, name, k.NextCPU(), fn)
}

// Accounting returns the journal entries, or nil when accounting is off.
func (k *Kernel) Accounting(ctx context.Context) ([]acct.Entry, error) {
	if k.journal == nil {
		return nil, nil
	}
	return k.journal.Entries(ctx)
}

// Program is the body of a user program. It runs on the program's only
// thread with the program's address space active; returning exits the
// program with status 0.
type Program func(t *thread.Thread, sys *syscalls.Handler)

// RunProgram creates a process named name that inherits the menu's working
// directory and starts prog on a new thread on the next core in rotation.
// The caller reaps the program with Procs().Wait or WaitPID.
func (k *Kernel) RunProgram(name string, prog Program) (*proc.Process, error) {
	if k.shutdown.Load() {
		return nil, fmt.Errorf("run %s: %w", name, ErrShutDown)
	}

	p, err := k.procs.CreateForProgram(k.menu, name)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	_, err = k.procs.Fork(p, name, k.NextCPU(), func(t *thread.Thread) {
		as := vm.Create()
		if old := k.procs.SetAddressSpace(t, as); old != nil {
			old.Destroy()
		}
		t.CPU().Activate(as)

		prog(t, k.sys)
		k.sys.Exit(t, 0)
	})
	if err != nil {
		k.procs.Destroy(k.menu, p)
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return p, nil
}

// Shutdown stops accepting programs and closes the accounting journal.
// Processes still in the table are left alone. Safe to call more than once;
// later calls return the first result.
func (k *Kernel) Shutdown() error {
	k.shutdownOnce.Do(func() {
		k.shutdown.Store(true)
		if live := k.procs.Table().Count(); live > 0 {
			k.log.Warn("shutting down with unreaped processes", "count", live)
		}
		if k.journal != nil {
			if err := k.journal.Close(); err != nil {
				k.shutdownErr = fmt.Errorf("close accounting journal: %w", err)
			}
		}
		k.log.Info("kernel shut down")
	})
	return k.shutdownErr
}
