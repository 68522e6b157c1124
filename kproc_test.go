package kproc_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/kproc"
)

// bootKernel boots a kernel with a silent console and shuts it down when the
// test ends.
func bootKernel(t *testing.T, opts ...kproc.Option) kproc.Kernel {
	t.Helper()
	opts = append([]kproc.Option{kproc.WithConsole(strings.NewReader(""), &syncBuffer{})}, opts...)
	k, err := kproc.Boot(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	t.Cleanup(func() {
		if err := k.Shutdown(); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return k
}

// syncBuffer is a bytes.Buffer safe for writes from program threads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunProgramExitStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status int
		want   uint8
	}{
		"zero":      {status: 0, want: 0},
		"in_range":  {status: 42, want: 42},
		"truncated": {status: 300, want: 44},
		"negative":  {status: -1, want: 255},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			k := bootKernel(t)

			p, err := k.RunProgram("exiter", func(th *kproc.Thread, sys *kproc.Syscalls) {
				sys.Exit(th, tc.status)
			})
			if err != nil {
				t.Fatalf("RunProgram() error = %v", err)
			}
			pid := p.PID()

			if got := k.Wait(k.Menu(), p); got != tc.want {
				t.Errorf("Wait() = %d, want %d", got, tc.want)
			}
			if got := k.Lookup(pid); got != nil {
				t.Errorf("Lookup(%d) = %v after Wait, want nil", pid, got)
			}
			if got := k.Processes(); len(got) != 0 {
				t.Errorf("Processes() = %v after Wait, want empty", got)
			}
		})
	}
}

func TestRunProgramReturnExitsZero(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)

	p, err := k.RunProgram("noop", func(*kproc.Thread, *kproc.Syscalls) {})
	if err != nil {
		t.Fatalf("RunProgram() error = %v", err)
	}
	status, err := k.WaitPID(k.Menu(), p.PID())
	if err != nil {
		t.Fatalf("WaitPID() error = %v", err)
	}
	if status != 0 {
		t.Errorf("WaitPID() = %d, want 0", status)
	}
}

func TestRunProgramAddressSpace(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)

	type observed struct {
		as     *kproc.AddressSpace
		active *kproc.AddressSpace
		pid    int
	}
	seen := make(chan observed, 1)

	p, err := k.RunProgram("inspect", func(th *kproc.Thread, sys *kproc.Syscalls) {
		seen <- observed{
			as:     k.AddressSpace(th),
			active: th.CPU().Active(),
			pid:    sys.GetPID(th),
		}
	})
	if err != nil {
		t.Fatalf("RunProgram() error = %v", err)
	}
	k.Wait(k.Menu(), p)

	got := <-seen
	if got.as == nil {
		t.Fatal("program ran without an address space")
	}
	if got.active != got.as {
		t.Error("program address space was not active on its core")
	}
	if !got.as.Destroyed() {
		t.Error("address space survived process exit")
	}
	if got.pid != p.PID() {
		t.Errorf("GetPID() = %d, want %d", got.pid, p.PID())
	}
}

func TestWaitPIDErrors(t *testing.T) {
	t.Parallel()
	k := bootKernel(t, kproc.WithMaxProcesses(8))

	tests := map[string]struct {
		pid     int
		wantErr error
	}{
		"never_allocated": {pid: 7, wantErr: kproc.ErrNoSuchProcess},
		"zero":            {pid: 0, wantErr: kproc.ErrInvalidPID},
		"negative":        {pid: -1, wantErr: kproc.ErrInvalidPID},
		"beyond_table":    {pid: 9, wantErr: kproc.ErrInvalidPID},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := k.WaitPID(k.NewThread("waiter"), tc.pid); !errors.Is(err, tc.wantErr) {
				t.Errorf("WaitPID(%d) error = %v, want %v", tc.pid, err, tc.wantErr)
			}
		})
	}
}

func TestProcessTableFull(t *testing.T) {
	t.Parallel()
	k := bootKernel(t, kproc.WithMaxProcesses(2))

	a, err := k.CreateProcess("a")
	if err != nil {
		t.Fatalf("CreateProcess(a) error = %v", err)
	}
	if _, err := k.CreateProcess("b"); err != nil {
		t.Fatalf("CreateProcess(b) error = %v", err)
	}

	if _, err := k.CreateProcess("c"); !errors.Is(err, kproc.ErrProcessTableFull) {
		t.Fatalf("CreateProcess(c) error = %v, want ErrProcessTableFull", err)
	}
	if _, err := k.RunProgram("d", func(*kproc.Thread, *kproc.Syscalls) {}); !errors.Is(err, kproc.ErrProcessTableFull) {
		t.Fatalf("RunProgram(d) error = %v, want ErrProcessTableFull", err)
	}
	if got := len(k.Processes()); got != 2 {
		t.Errorf("Processes() has %d entries after failed creates, want 2", got)
	}

	freed := a.PID()
	k.Destroy(k.Menu(), a)

	c, err := k.CreateProcess("c")
	if err != nil {
		t.Fatalf("CreateProcess(c) after Destroy error = %v", err)
	}
	if c.PID() != freed {
		t.Errorf("CreateProcess(c) pid = %d, want freed pid %d", c.PID(), freed)
	}
}

func TestConsoleIO(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	k := bootKernel(t, kproc.WithConsole(strings.NewReader("ping"), out))

	type result struct {
		n   int
		err error
	}
	results := make(chan result, 3)

	p, err := k.RunProgram("echo", func(th *kproc.Thread, sys *kproc.Syscalls) {
		buf := make([]byte, 8)
		n, err := sys.Read(kproc.StdinFD, buf)
		results <- result{n, err}

		n, err = sys.Write(kproc.StdoutFD, buf[:n])
		results <- result{n, err}

		n, err = sys.Write(5, []byte("lost"))
		results <- result{n, err}
	})
	if err != nil {
		t.Fatalf("RunProgram() error = %v", err)
	}
	k.Wait(k.Menu(), p)

	if r := <-results; r.err != nil || r.n != 4 {
		t.Errorf("Read() = (%d, %v), want (4, nil)", r.n, r.err)
	}
	if r := <-results; r.err != nil || r.n != 4 {
		t.Errorf("Write(stdout) = (%d, %v), want (4, nil)", r.n, r.err)
	}
	if r := <-results; r.n != -1 || !errors.Is(r.err, kproc.ErrUnsupportedFD) {
		t.Errorf("Write(5) = (%d, %v), want (-1, ErrUnsupportedFD)", r.n, r.err)
	}
	if got := out.String(); got != "ping" {
		t.Errorf("console output = %q, want %q", got, "ping")
	}
}

func TestConcurrentPrograms(t *testing.T) {
	t.Parallel()

	const n = 16
	k := bootKernel(t, kproc.WithCPUs(4), kproc.WithMaxProcesses(n))

	statuses := make([]uint8, n)
	g, _ := errgroup.WithContext(context.Background())
	for i := range n {
		g.Go(func() error {
			p, err := k.RunProgram(fmt.Sprintf("prog-%d", i), func(th *kproc.Thread, sys *kproc.Syscalls) {
				sys.Exit(th, i)
			})
			if err != nil {
				return err
			}
			statuses[i] = k.Wait(k.NewThread(fmt.Sprintf("reaper-%d", i)), p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("running programs: %v", err)
	}

	for i, got := range statuses {
		if got != uint8(i) {
			t.Errorf("program %d exited with %d", i, got)
		}
	}
	if err := k.Drain(context.Background(), time.Second); err != nil {
		t.Errorf("Drain() error = %v", err)
	}
}

func TestForkDetachesOnReturn(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)

	p, err := k.CreateProcess("workers")
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}

	gate := kproc.NewSemaphore("gate", 0)
	for i := range 2 {
		if _, err := k.Fork(p, fmt.Sprintf("worker-%d", i), func(th *kproc.Thread) {
			gate.P(th)
		}); err != nil {
			t.Fatalf("Fork() error = %v", err)
		}
	}
	if got := p.ThreadCount(); got != 2 {
		t.Fatalf("ThreadCount() = %d, want 2", got)
	}

	gate.V()
	gate.V()

	err = wait.PollUntilContextTimeout(context.Background(), time.Millisecond, 5*time.Second, true,
		func(context.Context) (bool, error) {
			return p.ThreadCount() == 0, nil
		})
	if err != nil {
		t.Fatalf("workers did not detach: %v", err)
	}
	k.Destroy(k.Menu(), p)
	gate.Destroy()
}

func TestChdirIsInheritedByPrograms(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)
	menu := k.Menu()

	v := kproc.NewVnode("/work")
	k.Chdir(menu, v)
	if got := v.RefCount(); got != 2 {
		t.Fatalf("RefCount() after Chdir = %d, want 2", got)
	}

	p, err := k.CreateProcessForProgram(menu, "child")
	if err != nil {
		t.Fatalf("CreateProcessForProgram() error = %v", err)
	}
	if p.Cwd() != v {
		t.Errorf("child Cwd() = %v, want the menu's directory", p.Cwd())
	}
	if got := v.RefCount(); got != 3 {
		t.Errorf("RefCount() with a child = %d, want 3", got)
	}

	k.Destroy(menu, p)
	k.Chdir(menu, nil)
	if got := v.RefCount(); got != 1 {
		t.Errorf("RefCount() after teardown = %d, want 1", got)
	}
}

func TestAccountingJournal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "acct.db")
	k, err := kproc.Boot(context.Background(),
		kproc.WithConsole(strings.NewReader(""), &syncBuffer{}),
		kproc.WithAccountingDB(path))
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	// A second kernel cannot share the journal.
	_, err = kproc.Boot(context.Background(),
		kproc.WithConsole(strings.NewReader(""), &syncBuffer{}),
		kproc.WithAccountingDB(path),
		kproc.WithAccountingTimeout(100*time.Millisecond))
	if err == nil {
		t.Fatal("second Boot() on a locked journal succeeded")
	}

	for i := range 3 {
		p, err := k.RunProgram(fmt.Sprintf("job-%d", i), func(th *kproc.Thread, sys *kproc.Syscalls) {
			sys.Exit(th, 10+i)
		})
		if err != nil {
			t.Fatalf("RunProgram() error = %v", err)
		}
		k.Wait(k.Menu(), p)
	}
	if err := k.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// Entries survive a reboot.
	k = bootKernel(t, kproc.WithAccountingDB(path))
	entries, err := k.Accounting(context.Background())
	if err != nil {
		t.Fatalf("Accounting() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Accounting() returned %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if want := fmt.Sprintf("job-%d", i); e.Name != want {
			t.Errorf("entry %d name = %q, want %q", i, e.Name, want)
		}
		if e.Status != uint8(10+i) {
			t.Errorf("entry %d status = %d, want %d", i, e.Status, 10+i)
		}
		if e.ReapedAt.Before(e.ExitedAt) {
			t.Errorf("entry %d reaped at %v before exit at %v", i, e.ReapedAt, e.ExitedAt)
		}
	}
}

func TestAccountingDisabled(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)

	entries, err := k.Accounting(context.Background())
	if err != nil || entries != nil {
		t.Errorf("Accounting() = (%v, %v), want (nil, nil)", entries, err)
	}
}

func TestDrain(t *testing.T) {
	t.Parallel()
	k := bootKernel(t, kproc.WithDrainInterval(time.Millisecond))

	if err := k.Drain(context.Background(), 0); err == nil {
		t.Error("Drain() with zero timeout succeeded")
	}

	p, err := k.CreateProcess("idle")
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	if err := k.Drain(context.Background(), 30*time.Millisecond); err == nil {
		t.Error("Drain() succeeded with a live process")
	}

	k.Destroy(k.Menu(), p)
	if err := k.Drain(context.Background(), time.Second); err != nil {
		t.Errorf("Drain() error = %v", err)
	}
}

func TestShutdownRejectsPrograms(t *testing.T) {
	t.Parallel()
	k := bootKernel(t)

	if err := k.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	_, err := k.RunProgram("late", func(*kproc.Thread, *kproc.Syscalls) {})
	if !errors.Is(err, kproc.ErrShutDown) {
		t.Errorf("RunProgram() after Shutdown error = %v, want ErrShutDown", err)
	}
}
