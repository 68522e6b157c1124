package proc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/kproc/internal/acct"
	"github.com/giantswarm/kproc/internal/cpu"
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/sentinel"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/vfs"
	"github.com/giantswarm/kproc/internal/vm"
)

// ErrNoSuchProcess is returned by WaitPID for a pid that was never
// allocated or has already been reaped.
const ErrNoSuchProcess = sentinel.Error("no such process")

// ErrInvalidPID is returned by WaitPID for a pid outside the table range.
const ErrInvalidPID = sentinel.Error("invalid pid")

// KernelProcessName is the name of the process holding kernel-only threads.
const KernelProcessName = "[kernel]"

// Recorder receives an accounting entry for every reaped process.
type Recorder interface {
	Record(ctx context.Context, e acct.Entry) error
}

// Config configures a Manager.
type Config struct {
	// MaxProc is the table capacity; pids range over [1, MaxProc].
	MaxProc int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Recorder, if set, is told about every reaped process.
	Recorder Recorder
	// RecordTimeout bounds each Recorder call. Required with Recorder.
	RecordTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager owns the process table and the kernel process.
// It is safe for concurrent use by multiple goroutines.
type Manager struct {
	table *Table
	kproc *Process

	log           *slog.Logger
	recorder      Recorder
	recordTimeout time.Duration
	now           func() time.Time
}

// NewManager returns a manager with an empty table and a freshly
// bootstrapped kernel process. Panics on an invalid config.
func NewManager(cfg Config) *Manager {
	kassert.That(cfg.Recorder == nil || cfg.RecordTimeout > 0,
		"record timeout must be greater than 0 with a recorder, got %s", cfg.RecordTimeout)

	m := &Manager{
		table:         NewTable(cfg.MaxProc),
		log:           cfg.Logger,
		recorder:      cfg.Recorder,
		recordTimeout: cfg.RecordTimeout,
		now:           cfg.Now,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}

	// The kernel process keeps pid 0 and is never registered in the table.
	m.kproc = newProcess(KernelProcessName, m.now())
	return m
}

// Kernel returns the kernel process.
func (m *Manager) Kernel() *Process {
	return m.kproc
}

// Table returns the process table.
func (m *Manager) Table() *Table {
	return m.table
}

// Current returns the process t is bound to, or nil.
func (m *Manager) Current(t *thread.Thread) *Process {
	p, _ := t.Proc().(*Process)
	return p
}

// Create returns a new registered process with no threads, no address
// space, and no working directory. Returns ErrProcessTableFull, with nothing
// left behind, when no pid is free.
func (m *Manager) Create(name string) (*Process, error) {
	p := newProcess(name, m.now())
	pid, err := m.table.Allocate(p)
	if err != nil {
		p.exitSem.Destroy()
		return nil, fmt.Errorf("create process %q: %w", name, err)
	}
	m.log.Debug("process created", "pid", pid, "name", name)
	return p, nil
}

// CreateForProgram is Create, with the working directory inherited from
// cur's process.
func (m *Manager) CreateForProgram(cur *thread.Thread, name string) (*Process, error) {
	parent := m.Current(cur)
	kassert.That(parent != nil, "create %q from thread %s with no process", name, cur.Name())

	p, err := m.Create(name)
	if err != nil {
		return nil, err
	}

	// p is not shared yet, so only the parent needs locking.
	tok := parent.lk.Acquire()
	if parent.cwd != nil {
		parent.cwd.IncRef()
		p.cwd = parent.cwd
	}
	parent.lk.Release(tok)

	return p, nil
}

// Chdir makes v the working directory of cur's process, taking a reference
// on v and dropping the one held on the previous directory.
func (m *Manager) Chdir(cur *thread.Thread, v *vfs.Vnode) {
	p := m.Current(cur)
	kassert.That(p != nil, "chdir from thread %s with no process", cur.Name())

	if v != nil {
		v.IncRef()
	}
	tok := p.lk.Acquire()
	old := p.cwd
	p.cwd = v
	p.lk.Release(tok)
	if old != nil {
		old.DecRef()
	}
}

// SetKernelCwd hands the boot-time root vnode reference to the kernel
// process.
func (m *Manager) SetKernelCwd(v *vfs.Vnode) {
	tok := m.kproc.lk.Acquire()
	old := m.kproc.cwd
	m.kproc.cwd = v
	m.kproc.lk.Release(tok)
	if old != nil {
		old.DecRef()
	}
}

// AddThread attaches t, which must not belong to any process, to p.
func (m *Manager) AddThread(p *Process, t *thread.Thread) error {
	kassert.That(t.Proc() == nil, "thread %s already belongs to process %d", t.Name(), pidOf(t.Proc()))

	tok := p.lk.Acquire()
	p.threads++
	p.lk.Release(tok)

	// The timer interrupt on t's core reads the binding.
	spl := t.CPU().SplHigh()
	t.SetProc(p)
	t.CPU().Splx(spl)

	return nil
}

// RemoveThread detaches t from its process.
func (m *Manager) RemoveThread(t *thread.Thread) {
	p := m.Current(t)
	kassert.That(p != nil, "thread %s belongs to no process", t.Name())

	tok := p.lk.Acquire()
	if p.threads <= 0 {
		p.lk.Release(tok)
		kassert.Fatalf("process %d has no threads to remove", p.pid)
	}
	p.threads--
	p.lk.Release(tok)

	spl := t.CPU().SplHigh()
	t.SetProc(nil)
	t.CPU().Splx(spl)
}

// AddressSpace returns the address space of cur's process, or nil.
func (m *Manager) AddressSpace(cur *thread.Thread) *vm.AddressSpace {
	p := m.Current(cur)
	if p == nil {
		return nil
	}
	defer p.lk.Release(p.lk.Acquire())
	return p.as
}

// SetAddressSpace installs as in cur's process and returns the previous
// space for the caller to restore or destroy outside the lock. A caller
// replacing the space of a running process must call Deactivate on cur's
// core after SetAddressSpace returns, never before.
func (m *Manager) SetAddressSpace(cur *thread.Thread, as *vm.AddressSpace) *vm.AddressSpace {
	p := m.Current(cur)
	kassert.That(p != nil, "set address space from thread %s with no process", cur.Name())

	tok := p.lk.Acquire()
	old := p.as
	p.as = as
	p.lk.Release(tok)
	return old
}

// Destroy frees p. cur is the calling thread. The caller must hold the only
// reference to p; p must not be the kernel process and must have no
// threads. Destroying twice is fatal.
func (m *Manager) Destroy(cur *thread.Thread, p *Process) {
	kassert.That(p != nil, "destroy of nil process")
	kassert.That(p != m.kproc, "destroy of the kernel process")
	if cur != nil {
		kassert.That(m.Current(cur) != p, "process %d destroyed by its own thread %s", p.pid, cur.Name())
	}
	kassert.That(p.ThreadCount() == 0, "destroy of process %d with %d live threads", p.pid, p.ThreadCount())
	kassert.That(p.destroyed.CompareAndSwap(false, true), "double destroy of process %d", p.pid)

	// With no threads left no core can reactivate the space, so it is
	// detached and destroyed without deactivation.
	tok := p.lk.Acquire()
	cwd := p.cwd
	p.cwd = nil
	as := p.as
	p.as = nil
	p.lk.Release(tok)

	if cwd != nil {
		cwd.DecRef()
	}
	if as != nil {
		as.Destroy()
	}

	p.lk.Cleanup()
	m.table.Release(p.pid)
	p.exitSem.Destroy()

	m.log.Debug("process destroyed", "pid", p.pid, "name", p.name)
}

// Exit records status&0xff as the exit status of t's process, detaches t,
// releases the process's waiter, and terminates t. It never returns.
func (m *Manager) Exit(t *thread.Thread, status int) {
	p := m.Current(t)
	kassert.That(p != nil, "exit from thread %s with no process", t.Name())
	kassert.That(p != m.kproc, "exit from kernel thread %s", t.Name())

	tok := p.lk.Acquire()
	p.status = uint8(status & 0xff)
	p.exited = true
	p.exitedAt = m.now()
	p.lk.Release(tok)

	m.RemoveThread(t)
	m.log.Debug("process exited", "pid", p.pid, "name", p.name, "status", status&0xff)
	p.exitSem.V()

	t.Exit()
}

// Wait blocks cur until p exits, destroys p, and returns its exit status.
// Only one thread may wait for a given process. Waiting for nil or for the
// kernel process is fatal.
func (m *Manager) Wait(cur *thread.Thread, p *Process) uint8 {
	kassert.That(p != nil, "wait for nil process")
	kassert.That(p != m.kproc, "wait for the kernel process")

	p.exitSem.P(cur)

	info := p.Info()
	m.Destroy(cur, p)
	m.log.Debug("process reaped", "pid", info.PID, "name", info.Name, "status", info.Status)
	m.record(info)

	return info.Status
}

// WaitPID looks up pid and waits for it. Returns ErrInvalidPID for a pid
// outside [1, MaxProc] and ErrNoSuchProcess for an empty slot.
func (m *Manager) WaitPID(cur *thread.Thread, pid int) (uint8, error) {
	if pid < 1 || pid > m.table.Capacity() {
		return 0, fmt.Errorf("waitpid %d: %w", pid, ErrInvalidPID)
	}
	p := m.table.Lookup(pid)
	if p == nil {
		return 0, fmt.Errorf("waitpid %d: %w", pid, ErrNoSuchProcess)
	}
	return m.Wait(cur, p), nil
}

// Lookup returns the live process with the given pid, or nil.
// Panics if pid is outside [0, MaxProc].
func (m *Manager) Lookup(pid int) *Process {
	return m.table.Lookup(pid)
}

// Processes returns a snapshot of every process in the table, exited but
// unreaped ones included.
func (m *Manager) Processes() []Info {
	live := m.table.Snapshot()
	out := make([]Info, 0, len(live))
	for _, p := range live {
		out = append(out, p.Info())
	}
	return out
}

// Fork starts a new thread named name on core c, attached to p, running fn.
// When fn returns the thread detaches itself from p.
func (m *Manager) Fork(p *Process, name string, c *cpu.CPU, fn func(*thread.Thread)) (*thread.Thread, error) {
	t := thread.New(name, c)
	if err := m.AddThread(p, t); err != nil {
		return nil, fmt.Errorf("fork %s: %w", name, err)
	}
	t.Start(fn, func(t *thread.Thread) {
		// Exit has already detached the thread.
		if t.Proc() != nil {
			m.RemoveThread(t)
		}
	})
	return t, nil
}

// TimerTick delivers a timer interrupt to cur's core, which activates the
// address space of cur's process the way a context switch would.
func (m *Manager) TimerTick(cur *thread.Thread) {
	cur.Interrupt(func() {
		p := m.Current(cur)
		if p == nil {
			return
		}
		tok := p.lk.Acquire()
		as := p.as
		p.lk.Release(tok)
		cur.CPU().Activate(as)
	})
}

func (m *Manager) record(info Info) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.recordTimeout)
	defer cancel()

	e := acct.Entry{
		PID:       info.PID,
		Name:      info.Name,
		Status:    info.Status,
		CreatedAt: info.CreatedAt,
		ExitedAt:  info.ExitedAt,
		ReapedAt:  m.now(),
	}
	if err := m.recorder.Record(ctx, e); err != nil {
		m.log.Warn("failed to record reaped process", "pid", info.PID, "error", err)
	}
}

func pidOf(p thread.Process) int {
	if p == nil {
		return -1
	}
	return p.PID()
}
