package synch

import (
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/spinlock"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/wchan"
)

// CV is a condition variable used together with a caller-held Lock.
type CV struct {
	name string
	lk   spinlock.Spinlock
	wc   *wchan.WaitChannel
}

// NewCV returns a condition variable with no waiters.
func NewCV(name string) *CV {
	return &CV{
		name: name,
		wc:   wchan.New(name),
	}
}

// Name returns the debug name.
func (cv *CV) Name() string {
	return cv.name
}

// Wait releases lock, sleeps until signaled, and reacquires lock before
// returning. t must hold lock.
//
// The internal spinlock is taken before lock is released, and a signaler
// must hold lock to reach the internal spinlock, so a signal cannot slip in
// between the release and the sleep.
func (cv *CV) Wait(t *thread.Thread, lock *Lock) {
	kassert.That(!t.InInterrupt(), "cv %s: wait in interrupt handler", cv.name)
	kassert.That(lock.HeldBy(t), "cv %s: wait without holding lock %s", cv.name, lock.Name())

	tok := cv.lk.Acquire()
	lock.Release(t)
	tok = cv.wc.Sleep(t, &cv.lk, tok)
	cv.lk.Release(tok)
	lock.Acquire(t)
}

// Signal wakes one waiter. t must hold lock.
func (cv *CV) Signal(t *thread.Thread, lock *Lock) {
	kassert.That(lock.HeldBy(t), "cv %s: signal without holding lock %s", cv.name, lock.Name())

	tok := cv.lk.Acquire()
	cv.wc.WakeOne(&cv.lk, tok)
	cv.lk.Release(tok)
}

// Broadcast wakes every waiter. t must hold lock.
func (cv *CV) Broadcast(t *thread.Thread, lock *Lock) {
	kassert.That(lock.HeldBy(t), "cv %s: broadcast without holding lock %s", cv.name, lock.Name())

	tok := cv.lk.Acquire()
	cv.wc.WakeAll(&cv.lk, tok)
	cv.lk.Release(tok)
}

// Waiters returns a point-in-time snapshot of the number of sleepers.
func (cv *CV) Waiters() int {
	tok := cv.lk.Acquire()
	defer cv.lk.Release(tok)
	return cv.wc.Len(&cv.lk, tok)
}

// Destroy checks nobody is waiting.
func (cv *CV) Destroy() {
	cv.lk.Cleanup()
	cv.wc.Destroy()
}
