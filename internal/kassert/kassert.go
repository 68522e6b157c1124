// Package kassert reports broken kernel invariants. A violation is a
// programming error in the caller, never a runtime condition, so every
// helper here panics with a "kproc: " diagnostic instead of returning.
package kassert

import "fmt"

// Prefix starts every panic message raised through this package.
const Prefix = "kproc: "

// Fatalf panics with a formatted diagnostic.
func Fatalf(format string, args ...any) {
	panic(Prefix + fmt.Sprintf(format, args...))
}

// That panics with a formatted diagnostic when cond is false.
func That(cond bool, format string, args ...any) {
	if !cond {
		Fatalf(format, args...)
	}
}
