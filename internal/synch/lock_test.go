package synch

import (
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/kproc/internal/thread"
)

func TestLockSecondAcquirerWaitsForRelease(t *testing.T) {
	t.Parallel()

	l := NewLock("contended")
	threads := newThreads(2)
	first, second := threads[0], threads[1]

	l.Acquire(first)
	if !l.HeldBy(first) {
		t.Fatal("HeldBy(first) = false after Acquire")
	}

	acquired := make(chan struct{})
	second.Start(func(th *thread.Thread) {
		l.Acquire(th)
		close(acquired)
		l.Release(th)
	}, nil)

	eventually(t, "second acquirer to sleep", func() bool {
		tok := l.lk.Acquire()
		defer l.lk.Release(tok)
		return !l.wc.IsEmpty(&l.lk, tok)
	})
	select {
	case <-acquired:
		t.Fatal("second thread acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release(first)
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second thread not woken by Release")
	}
	<-second.Done()

	if l.HeldBy(first) || l.HeldBy(second) {
		t.Error("lock still owned after both released")
	}
	l.Destroy()
}

func TestLockMutualExclusion(t *testing.T) {
	t.Parallel()

	l := NewLock("counter")
	var counter int

	var g errgroup.Group
	for _, th := range newThreads(6) {
		g.Go(func() error {
			for range 300 {
				l.Acquire(th)
				counter++
				l.Release(th)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if counter != 6*300 {
		t.Errorf("counter = %d, want %d", counter, 6*300)
	}
	l.Destroy()
}

func TestLockFatalMisuse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fn   func(l *Lock, owner, other *thread.Thread)
		want string
	}{
		"reacquire": {
			fn: func(l *Lock, owner, _ *thread.Thread) {
				l.Acquire(owner)
				l.Acquire(owner)
			},
			want: "re-acquired by owner t0",
		},
		"release_by_non_owner": {
			fn: func(l *Lock, owner, other *thread.Thread) {
				l.Acquire(owner)
				l.Release(other)
			},
			want: "released by non-owner t1",
		},
		"release_unheld": {
			fn:   func(l *Lock, owner, _ *thread.Thread) { l.Release(owner) },
			want: "released by non-owner t0",
		},
		"acquire_in_interrupt": {
			fn: func(l *Lock, owner, _ *thread.Thread) {
				owner.Interrupt(func() { l.Acquire(owner) })
			},
			want: "acquire in interrupt handler",
		},
		"destroy_held": {
			fn: func(l *Lock, owner, _ *thread.Thread) {
				l.Acquire(owner)
				l.Destroy()
			},
			want: "destroyed while held by t0",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			threads := newThreads(2)
			requirePanicContains(t, tc.want, func() { tc.fn(NewLock(name), threads[0], threads[1]) })
		})
	}
}
