package kproc

import (
	"os"

	"github.com/giantswarm/kproc/internal/kernel"
)

// kernelConfig wraps kernel.Config so internal types stay out of the
// public option signatures.
type kernelConfig struct {
	kernel.Config
}

// defaultKernelConfig returns the configuration Boot starts from before
// applying options.
func defaultKernelConfig() kernelConfig {
	return kernelConfig{kernel.Config{
		MaxProcesses:      DefaultMaxProcesses,
		CPUs:              DefaultCPUs,
		AccountingTimeout: DefaultAccountingTimeout,
		DrainInterval:     DefaultDrainInterval,
		Stdin:             os.Stdin,
		Stdout:            os.Stdout,
	}}
}
