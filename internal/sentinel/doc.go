// Package sentinel provides Error, a string-backed error type for recoverable
// kernel conditions (full process table, unknown pid, unsupported fd).
// Values can be declared as constants and matched with errors.Is.
package sentinel
