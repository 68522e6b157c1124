// Package cpu simulates an execution core: its interrupt priority level,
// delivery of interrupts to it, and its active address-space mapping.
//
// Raising the level with SplHigh closes the core's interrupt gate; Deliver
// blocks until the gate is open, so a handler can never observe state that a
// thread changes between SplHigh and Splx. The gate does not nest: a thread
// must not call SplHigh twice, and a handler must not call SplHigh at all.
package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/vm"
)

// Level is an interrupt priority level.
type Level int

const (
	// IPLNone means interrupts are enabled.
	IPLNone Level = iota
	// IPLHigh means interrupts are disabled on the core.
	IPLHigh
)

// CPU is one simulated core.
type CPU struct {
	id int

	gate  sync.Mutex
	level atomic.Int32

	active atomic.Pointer[vm.AddressSpace]
}

// New returns core number id with interrupts enabled.
func New(id int) *CPU {
	return &CPU{id: id}
}

// ID returns the core number.
func (c *CPU) ID() int {
	return c.id
}

// SplHigh disables interrupts on the core and returns the previous level.
func (c *CPU) SplHigh() Level {
	c.gate.Lock()
	old := Level(c.level.Swap(int32(IPLHigh)))
	kassert.That(old == IPLNone, "cpu%d: nested splhigh", c.id)
	return old
}

// Splx restores the level returned by SplHigh.
func (c *CPU) Splx(old Level) {
	kassert.That(Level(c.level.Load()) == IPLHigh, "cpu%d: splx without splhigh", c.id)
	c.level.Store(int32(old))
	c.gate.Unlock()
}

// Level returns the current interrupt priority level.
func (c *CPU) Level() Level {
	return Level(c.level.Load())
}

// Deliver runs handler as an interrupt on the core, waiting until
// interrupts are enabled.
func (c *CPU) Deliver(handler func()) {
	c.gate.Lock()
	defer c.gate.Unlock()
	handler()
}

// Activate makes as the core's active mapping. A nil space leaves the
// previous mapping in place, as kernel-only processes do not need one.
func (c *CPU) Activate(as *vm.AddressSpace) {
	if as == nil {
		return
	}
	as.Activate()
	c.active.Store(as)
}

// Deactivate drops the core's active mapping.
func (c *CPU) Deactivate() {
	c.active.Store(nil)
}

// Active returns the core's active mapping, or nil.
func (c *CPU) Active() *vm.AddressSpace {
	return c.active.Load()
}
