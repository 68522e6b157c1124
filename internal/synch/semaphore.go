package synch

import (
	"github.com/giantswarm/kproc/internal/kassert"
	"github.com/giantswarm/kproc/internal/spinlock"
	"github.com/giantswarm/kproc/internal/thread"
	"github.com/giantswarm/kproc/internal/wchan"
)

// Semaphore is a counting semaphore. Waiters are not served in any
// guaranteed order: a thread calling P may take a unit ahead of threads
// already asleep.
type Semaphore struct {
	name  string
	lk    spinlock.Spinlock
	wc    *wchan.WaitChannel
	count uint
}

// NewSemaphore returns a semaphore holding count units.
func NewSemaphore(name string, count uint) *Semaphore {
	return &Semaphore{
		name:  name,
		wc:    wchan.New(name),
		count: count,
	}
}

// Name returns the debug name.
func (s *Semaphore) Name() string {
	return s.name
}

// P takes one unit, sleeping while none is available.
func (s *Semaphore) P(t *thread.Thread) {
	// Checked even when P would not block.
	kassert.That(!t.InInterrupt(), "semaphore %s: P in interrupt handler", s.name)

	tok := s.lk.Acquire()
	for s.count == 0 {
		tok = s.wc.Sleep(t, &s.lk, tok)
	}
	s.count--
	s.lk.Release(tok)
}

// V returns one unit and wakes one sleeper.
func (s *Semaphore) V() {
	tok := s.lk.Acquire()
	s.count++
	kassert.That(s.count > 0, "semaphore %s: count overflow", s.name)
	s.wc.WakeOne(&s.lk, tok)
	s.lk.Release(tok)
}

// Count returns a point-in-time snapshot of the available units.
func (s *Semaphore) Count() uint {
	defer s.lk.Release(s.lk.Acquire())
	return s.count
}

// Sleepers returns a point-in-time snapshot of the number of sleepers.
func (s *Semaphore) Sleepers() int {
	tok := s.lk.Acquire()
	defer s.lk.Release(tok)
	return s.wc.Len(&s.lk, tok)
}

// Destroy checks the semaphore is idle. Sleepers make this fatal.
func (s *Semaphore) Destroy() {
	s.lk.Cleanup()
	s.wc.Destroy()
}
