package synch

import (
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/spinlock"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/wchan"
)

// Lock is a sleeping mutual-exclusion lock that records its owner.
type Lock struct {
	name  string
	lk    spinlock.Spinlock
	wc    *wchan.WaitChannel
	owner *thread.Thread
}

// NewLock returns an unowned lock.
func NewLock(name string) *Lock {
	return &Lock{
		name: name,
		wc:   wchan.New(name),
	}
}

// Name returns the debug name.
func (l *Lock) Name() string {
	return l.name
}

// Acquire takes the lock for t, sleeping while another thread owns it.
func (l *Lock) Acquire(t *thread.Thread) {
	kassert.That(!l.HeldBy(t), "lock %s: re-acquired by owner %s", l.name, t.Name())
	kassert.That(!t.InInterrupt(), "lock %s: acquire in interrupt handler", l.name)

	tok := l.lk.Acquire()
	for l.owner != nil {
		tok = l.wc.Sleep(t, &l.lk, tok)
	}
	l.owner = t
	l.lk.Release(tok)
}

// Release drops t's ownership and wakes one sleeper.
func (l *Lock) Release(t *thread.Thread) {
	tok := l.lk.Acquire()
	if l.owner != t {
		l.lk.Release(tok)
		kassert.Fatalf("lock %s: released by non-owner %s", l.name, t.Name())
	}
	l.owner = nil
	l.wc.WakeOne(&l.lk, tok)
	l.lk.Release(tok)
}

// HeldBy reports whether t owns the lock at this instant.
func (l *Lock) HeldBy(t *thread.Thread) bool {
	defer l.lk.Release(l.lk.Acquire())
	return l.owner == t
}

// Destroy checks the lock is free and has no sleepers.
func (l *Lock) Destroy() {
	l.lk.Cleanup()
	kassert.That(l.owner == nil, "lock %s destroyed while held by %s", l.name, ownerName(l.owner))
	l.wc.Destroy()
}

func ownerName(t *thread.Thread) string {
	if t == nil {
		return "nobody"
	}
	return t.Name()
}
