// Package proc implements the process table and the process lifecycle:
// PID allocation, thread attachment, address-space hand-off, and the
// exit/wait rendezvous through which a parent reaps a child.
//
// A process record moves through created → running → exited → destroyed.
// The record of a process nobody waits for stays in the table; there is no
// reaper and no reparenting.
package proc
