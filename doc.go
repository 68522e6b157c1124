// Package kproc provides process lifecycle management and sleeping
// synchronization primitives for a simulated teaching kernel.
//
// A booted Kernel owns a fixed-capacity process table, a kernel process
// with a "menu" thread, a set of simulated cores, and a console. Kernel
// threads are goroutines; every operation that needs the current thread
// takes it as an explicit *Thread argument.
//
// # Basic Usage
//
//	k, err := kproc.Boot(ctx, kproc.WithCPUs(2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer k.Shutdown()
//
//	p, err := k.RunProgram("hello", func(t *kproc.Thread, sys *kproc.Syscalls) {
//	    sys.Write(kproc.StdoutFD, []byte("hello\n"))
//	    sys.Exit(t, 42)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	status := k.Wait(k.Menu(), p) // 42
//
// # Primitives
//
// Semaphore, Lock, and CV block the calling thread on a wait channel. None
// of them support timeouts, and none may be used from interrupt context.
//
// # Fatal Conditions
//
// Broken invariants panic with a "kproc: " message: releasing a lock the
// caller does not own, re-acquiring a held lock, waiting on a CV without its
// lock, destroying a process that still has threads, destroying anything
// twice. Conditions a caller can recover from are returned as errors that
// match the Err* constants with errors.Is.
package kproc
