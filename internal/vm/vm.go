// Package vm provides the address-space handle a process owns. Address spaces
// are not reference counted: exactly one process owns a handle at a time and
// hands it off with proc.Manager.SetAddressSpace.
package vm

import (
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/kassert"
)

var nextID atomic.Uint64

// AddressSpace is an owned, move-only virtual memory context.
type AddressSpace struct {
	id          uint64
	destroyed   atomic.Bool
	activations atomic.Int64
}

// Create returns a fresh address space.
func Create() *AddressSpace {
	return &AddressSpace{id: nextID.Add(1)}
}

// ID returns the address space identifier.
func (as *AddressSpace) ID() uint64 {
	return as.id
}

// Activate loads the mappings on the calling core. Activating a destroyed
// space means a stale pointer survived a swap, which is fatal.
func (as *AddressSpace) Activate() {
	kassert.That(!as.destroyed.Load(), "activate of destroyed address space %d", as.id)
	as.activations.Add(1)
}

// Activations reports how many times the space has been activated.
func (as *AddressSpace) Activations() int64 {
	return as.activations.Load()
}

// Destroy releases the address space. Destroying twice is fatal.
func (as *AddressSpace) Destroy() {
	kassert.That(as.destroyed.CompareAndSwap(false, true), "double destroy of address space %d", as.id)
}

// Destroyed reports whether Destroy has been called.
func (as *AddressSpace) Destroyed() bool {
	return as.destroyed.Load()
}
