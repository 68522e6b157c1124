// Package spinlock provides busy-wait mutual exclusion for very short
// critical sections that never block, such as the internals of the
// sleeping primitives and the process table scan.
//
// Every acquisition hands back a Token naming that holder. Release and
// HeldBy take the token, so code that did not take the lock can neither
// drop it nor pass a "lock is held" assertion on it.
package spinlock

import (
	"runtime"
	"sync/atomic"

	"github.com/giantswarm/kproc/internal/kassert"
)

// Token identifies one acquisition of a Spinlock. The zero Token is never
// handed out.
type Token uint64

var nextToken atomic.Uint64

// Spinlock is a test-and-set lock that records its holder. The zero value
// is unlocked.
type Spinlock struct {
	holder atomic.Uint64
}

// Acquire spins until the lock is taken and returns the holder's token.
func (s *Spinlock) Acquire() Token {
	tok := Token(nextToken.Add(1))
	for !s.holder.CompareAndSwap(0, uint64(tok)) {
		runtime.Gosched()
	}
	return tok
}

// Release drops the lock taken as tok. Releasing an unheld spinlock, or one
// taken by another holder, is fatal.
func (s *Spinlock) Release(tok Token) {
	if s.holder.CompareAndSwap(uint64(tok), 0) {
		return
	}
	if s.holder.Load() == 0 {
		kassert.Fatalf("release of unheld spinlock")
	}
	kassert.Fatalf("release of spinlock by a non-holder")
}

// HeldBy reports whether tok is the current holder, the analogue of
// "do I hold this lock".
func (s *Spinlock) HeldBy(tok Token) bool {
	return tok != 0 && Token(s.holder.Load()) == tok
}

// Cleanup checks that the lock is free before its owner is discarded.
func (s *Spinlock) Cleanup() {
	kassert.That(s.holder.Load() == 0, "cleanup of held spinlock")
}
