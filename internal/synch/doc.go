// Package synch provides the sleeping synchronization primitives: counting
// semaphores, mutual-exclusion locks with owner tracking, and condition
// variables. Each is built from a spinlock guarding its state and a wait
// channel for sleepers.
//
// None of the blocking operations support cancellation or timeouts, and
// none may be called from interrupt context. Contract violations (blocking
// in an interrupt handler, re-entrant acquire, release by a non-owner,
// destroying a primitive with sleepers) panic.
package synch
