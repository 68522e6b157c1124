package kernel

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/kproc/internal/sentinel"
)

// ErrTimeoutNotPositive is returned by Drain for a non-positive timeout.
const ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

// Drain polls until every user process has been reaped, the timeout
// elapses, or ctx is done. Unlike the primitives, Drain is meant for
// tooling and tests and therefore takes a deadline.
func (k *Kernel) Drain(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("drain: %w", ErrTimeoutNotPositive)
	}

	polls := 0
	err := wait.PollUntilContextTimeout(ctx, k.cfg.DrainInterval, timeout, true,
		func(context.Context) (bool, error) {
			polls++
			return k.procs.Table().Count() == 0, nil
		})
	if err != nil {
		return fmt.Errorf("drain %d processes: %w", k.procs.Table().Count(), err)
	}
	k.log.Debug("drained process table", "polls", polls)
	return nil
}
