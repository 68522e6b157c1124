// Package kernel boots and shuts down a simulated kernel: it creates the
// cores, the process manager with its kernel process and menu thread, the
// console-backed system call handler, and the optional accounting journal,
// and it launches user programs the way the kernel menu's runprogram does.
package kernel
