package synch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/kproc/internal/cpu"
	"github.com/giantswarm/kproc/internal/thread"
)

func requirePanicContains(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, want) {
			t.Fatalf("panic = %q, want it to contain %q", msg, want)
		}
	}()
	fn()
}

// newThreads returns n unbound thread handles spread over two cores.
func newThreads(n int) []*thread.Thread {
	cpus := []*cpu.CPU{cpu.New(0), cpu.New(1)}
	out := make([]*thread.Thread, n)
	for i := range out {
		out[i] = thread.New(fmt.Sprintf("t%d", i), cpus[i%len(cpus)])
	}
	return out
}

// eventually polls cond until it holds or the test times out.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	err := wait.PollUntilContextTimeout(context.Background(), time.Millisecond, 5*time.Second, true,
		func(context.Context) (bool, error) { return cond(), nil })
	if err != nil {
		t.Fatalf("timed out waiting for %s: %v", what, err)
	}
}
