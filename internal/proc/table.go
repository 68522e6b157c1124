package proc

import (
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/sentinel"
	"github.com/giantswarm/kproc/internal/spinlock"
)

// ErrProcessTableFull is returned when every pid slot is occupied.
const ErrProcessTableFull = sentinel.Error("process table is full")

// Table maps pids in [1, Capacity()] to live process records. Slot 0 is
// never used; the kernel process lives outside the table.
//
// It is safe for concurrent use. All methods hold the table spinlock for at
// most one bounded scan.
type Table struct {
	lk    spinlock.Spinlock
	slots []*Process
	// last is the pid most recently handed out. Allocation resumes the
	// circular scan just after it, so a freed pid is not reused until the
	// scan wraps around to it.
	last  int
	count int
}

// NewTable returns an empty table for pids 1..maxProc.
// Panics if maxProc < 1.
func NewTable(maxProc int) *Table {
	kassert.That(maxProc >= 1, "process table capacity must be at least 1, got %d", maxProc)
	return &Table{slots: make([]*Process, maxProc+1)}
}

// Capacity returns the highest pid the table can hand out.
func (tb *Table) Capacity() int {
	return len(tb.slots) - 1
}

// Allocate stores p in the first free slot after the last allocated pid,
// wrapping from Capacity() back to 1 and examining every slot once, and
// records the pid in p. Returns ErrProcessTableFull when no slot is free.
func (tb *Table) Allocate(p *Process) (int, error) {
	defer tb.lk.Release(tb.lk.Acquire())

	maxPID := tb.Capacity()
	i := tb.last
	for range maxPID {
		i++
		if i > maxPID {
			i = 1
		}
		if tb.slots[i] == nil {
			tb.slots[i] = p
			tb.last = i
			tb.count++
			p.pid = i
			return i, nil
		}
	}
	return 0, ErrProcessTableFull
}

// Lookup returns the record occupying pid, or nil if the slot is empty.
// The record can be destroyed by its reaper as soon as Lookup returns; only
// the parent that will wait for it may rely on it staying alive.
// Panics if pid is outside [0, Capacity()].
func (tb *Table) Lookup(pid int) *Process {
	kassert.That(pid >= 0 && pid <= tb.Capacity(), "lookup of pid %d outside [0, %d]", pid, tb.Capacity())

	tok := tb.lk.Acquire()
	p := tb.slots[pid]
	tb.lk.Release(tok)

	if p != nil {
		kassert.That(p.pid == pid, "slot %d holds process with pid %d", pid, p.pid)
	}
	return p
}

// Release empties slot pid. The record itself is left to the caller.
// Panics if pid is outside [1, Capacity()] or the slot is already empty.
func (tb *Table) Release(pid int) {
	kassert.That(pid >= 1 && pid <= tb.Capacity(), "release of pid %d outside [1, %d]", pid, tb.Capacity())

	tok := tb.lk.Acquire()
	if tb.slots[pid] == nil {
		tb.lk.Release(tok)
		kassert.Fatalf("release of free pid %d", pid)
	}
	tb.slots[pid] = nil
	tb.count--
	tb.lk.Release(tok)
}

// Count returns the number of occupied slots.
func (tb *Table) Count() int {
	defer tb.lk.Release(tb.lk.Acquire())
	return tb.count
}

// Snapshot returns the live records in pid order.
func (tb *Table) Snapshot() []*Process {
	defer tb.lk.Release(tb.lk.Acquire())

	out := make([]*Process, 0, tb.count)
	for _, p := range tb.slots[1:] {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
