package kproc

import (
	"log/slog"

	"github.com/giantswarm/kproc/internal/kernel"
)

// SetLogger replaces the package-level logger. Kernels capture the logger
// when they boot, so call SetLogger first, e.g. in TestMain.
//
// If l is nil, the logger resets to slog.Default() with a
// "component"="kproc" attribute.
//
// Example:
//
//	kproc.SetLogger(myLogger.With("component", "kproc"))
func SetLogger(l *slog.Logger) {
	kernel.SetLogger(l)
}
