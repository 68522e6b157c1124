package syscalls

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/proc"
	"github.com/giantswarm/kproc/internal/sentinel"
	"github.com/giantswarm/kproc/internal/thread"
)

// ErrUnsupportedFD is returned, together with a count of -1, for console
// I/O on a descriptor other than the standard ones.
const ErrUnsupportedFD = sentinel.Error("unsupported file descriptor")

// Standard descriptors.
const (
	StdinFD  = 0
	StdoutFD = 1
	StderrFD = 2
)

// Handler dispatches the system calls for one kernel.
type Handler struct {
	procs   *proc.Manager
	console *Console
	log     *slog.Logger
}

// NewHandler returns a handler over procs and console. A nil logger falls
// back to slog.Default(). Panics if procs or console is nil.
func NewHandler(procs *proc.Manager, console *Console, log *slog.Logger) *Handler {
	kassert.That(procs != nil, "syscall handler needs a process manager")
	kassert.That(console != nil, "syscall handler needs a console")
	if log == nil {
		log = slog.Default()
	}
	return &Handler{procs: procs, console: console, log: log}
}

// Write copies buf to the console. Only stdout and stderr are supported;
// any other fd returns -1 and ErrUnsupportedFD.
func (h *Handler) Write(fd int, buf []byte) (int, error) {
	if fd != StdoutFD && fd != StderrFD {
		h.log.Warn("write supported only to stdout and stderr", "fd", fd)
		return -1, fmt.Errorf("write fd %d: %w", fd, ErrUnsupportedFD)
	}
	n, err := h.console.write(buf)
	if err != nil {
		return n, fmt.Errorf("write fd %d: %w", fd, err)
	}
	return n, nil
}

// Read fills buf from the console, returning fewer bytes at end of input.
// Only stdin is supported; any other fd returns -1 and ErrUnsupportedFD.
func (h *Handler) Read(fd int, buf []byte) (int, error) {
	if fd != StdinFD {
		h.log.Warn("read supported only from stdin", "fd", fd)
		return -1, fmt.Errorf("read fd %d: %w", fd, ErrUnsupportedFD)
	}
	n, err := h.console.read(buf)
	if err != nil {
		return n, fmt.Errorf("read fd %d: %w", fd, err)
	}
	return n, nil
}

// GetPID returns the pid of cur's process.
func (h *Handler) GetPID(cur *thread.Thread) int {
	p := h.procs.Current(cur)
	kassert.That(p != nil, "getpid from thread %s with no process", cur.Name())
	return p.PID()
}

// WaitPID reaps pid and returns its exit status.
func (h *Handler) WaitPID(cur *thread.Thread, pid int) (uint8, error) {
	return h.procs.WaitPID(cur, pid)
}

// Exit tears down the caller's address space and exits its process with
// status. It never returns.
func (h *Handler) Exit(cur *thread.Thread, status int) {
	// A timer tick between the swap and the deactivation would reactivate
	// the old space, so both happen with the core's interrupts off.
	c := cur.CPU()
	spl := c.SplHigh()
	as := h.procs.SetAddressSpace(cur, nil)
	if as != nil {
		c.Deactivate()
	}
	c.Splx(spl)

	if as != nil {
		as.Destroy()
	}
	h.procs.Exit(cur, status)
}
