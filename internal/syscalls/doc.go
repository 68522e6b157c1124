// Package syscalls implements the process-facing system call handlers that
// sit directly on the process layer: console read and write, getpid,
// waitpid, and _exit. Argument decoding and user memory copying belong to
// the trap layer and are not done here; buffers arrive as kernel slices.
package syscalls
