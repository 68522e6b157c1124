// Package vfs provides the reference-counted vnode used as a process working
// directory. A process holds one reference for as long as the vnode is its
// cwd; the last DecRef reclaims the node.
package vfs

import (
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/kassert"
)

// Vnode is a filesystem node shared between processes.
type Vnode struct {
	path string
	refs atomic.Int32
}

// NewVnode returns a vnode for path holding one reference for the caller.
func NewVnode(path string) *Vnode {
	v := &Vnode{path: path}
	v.refs.Store(1)
	return v
}

// Path returns the node's path.
func (v *Vnode) Path() string {
	return v.path
}

// IncRef adds a reference. Reviving a reclaimed node is fatal.
func (v *Vnode) IncRef() {
	n := v.refs.Add(1)
	kassert.That(n > 1, "incref of reclaimed vnode %s", v.path)
}

// DecRef drops a reference. Dropping below zero is fatal.
func (v *Vnode) DecRef() {
	n := v.refs.Add(-1)
	kassert.That(n >= 0, "decref of vnode %s below zero", v.path)
}

// RefCount returns the current number of references.
func (v *Vnode) RefCount() int {
	return int(v.refs.Load())
}
