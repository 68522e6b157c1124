// Package acct records reaped processes in an SQLite accounting journal,
// one row per process: pid, name, exit status, and when it was created,
// exited, and reaped.
//
// A journal file belongs to one kernel at a time. Open takes an exclusive
// lock file beside the database and holds it until Close.
package acct
