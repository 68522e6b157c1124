package kernel

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the logger given to SetLogger, or nil.
var logger atomic.Pointer[slog.Logger]

// Logger returns the logger a kernel captures at Boot: the one given to
// SetLogger, else slog.Default() tagged with component=kproc. The default is
// derived on every call, so it follows slog.SetDefault.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default().With("component", "kproc")
}

// SetLogger replaces the logger for kernels booted afterwards. A nil l
// restores the default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}
