// Package wchan provides wait channels: named queues of sleeping threads.
//
// Every operation is paired with a spinlock the caller holds, proven by the
// token from its acquisition. Sleep enqueues the thread before releasing
// that spinlock, so a wakeup issued by anyone who subsequently takes the
// same spinlock cannot be lost. Wake order is FIFO in this implementation,
// but callers must not rely on it.
package wchan

import (
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/spinlock"
	"github.com/giantswarm/kproc/internal/thread"
)

// WaitChannel is a queue of sleeping threads.
type WaitChannel struct {
	name     string
	sleepers []*thread.Thread
}

// New returns an empty wait channel.
func New(name string) *WaitChannel {
	return &WaitChannel{name: name}
}

// Name returns the debug name.
func (wc *WaitChannel) Name() string {
	return wc.name
}

// Sleep puts t to sleep on the channel. The caller holds lk as tok; lk is
// released while t sleeps and taken again before Sleep returns the token of
// the new acquisition.
func (wc *WaitChannel) Sleep(t *thread.Thread, lk *spinlock.Spinlock, tok spinlock.Token) spinlock.Token {
	kassert.That(lk.HeldBy(tok), "wchan %s: sleep without spinlock", wc.name)
	kassert.That(!t.InInterrupt(), "wchan %s: sleep in interrupt handler", wc.name)

	wc.sleepers = append(wc.sleepers, t)
	lk.Release(tok)
	t.Park()
	return lk.Acquire()
}

// WakeOne wakes one sleeper, if any. The caller holds lk as tok.
func (wc *WaitChannel) WakeOne(lk *spinlock.Spinlock, tok spinlock.Token) {
	kassert.That(lk.HeldBy(tok), "wchan %s: wakeone without spinlock", wc.name)
	if len(wc.sleepers) == 0 {
		return
	}
	t := wc.sleepers[0]
	wc.sleepers[0] = nil
	wc.sleepers = wc.sleepers[1:]
	t.Unpark()
}

// WakeAll wakes every sleeper. The caller holds lk as tok.
func (wc *WaitChannel) WakeAll(lk *spinlock.Spinlock, tok spinlock.Token) {
	kassert.That(lk.HeldBy(tok), "wchan %s: wakeall without spinlock", wc.name)
	sleepers := wc.sleepers
	wc.sleepers = nil
	for _, t := range sleepers {
		t.Unpark()
	}
}

// IsEmpty reports whether nobody is asleep on the channel. The caller holds
// lk as tok.
func (wc *WaitChannel) IsEmpty(lk *spinlock.Spinlock, tok spinlock.Token) bool {
	kassert.That(lk.HeldBy(tok), "wchan %s: isempty without spinlock", wc.name)
	return len(wc.sleepers) == 0
}

// Len returns the number of sleepers. The caller holds lk as tok.
func (wc *WaitChannel) Len(lk *spinlock.Spinlock, tok spinlock.Token) int {
	kassert.That(lk.HeldBy(tok), "wchan %s: len without spinlock", wc.name)
	return len(wc.sleepers)
}

// Destroy checks that nobody is asleep on the channel.
func (wc *WaitChannel) Destroy() {
	kassert.That(len(wc.sleepers) == 0, "wchan %s destroyed with %d sleepers", wc.name, len(wc.sleepers))
}
