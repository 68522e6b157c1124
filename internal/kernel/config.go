package kernel

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Config holds the boot configuration of a Kernel. All fields are
// immutable after Boot.
type Config struct {
	// MaxProcesses is the process table capacity.
	MaxProcesses int
	// CPUs is the number of simulated cores.
	CPUs int

	// AccountingDB is the SQLite journal path. Empty disables accounting.
	AccountingDB string
	// AccountingTimeout bounds opening the journal, including waiting for
	// its lock, and each record written to it.
	AccountingTimeout time.Duration

	// DrainInterval is the poll interval used by Drain.
	DrainInterval time.Duration

	// Stdin and Stdout back the console device.
	Stdin  io.Reader
	Stdout io.Writer
}

// Validate checks every Config invariant and reports all violations at
// once through errors.Join.
func (c Config) Validate() error {
	var errs []error

	if c.MaxProcesses < 1 {
		errs = append(errs, fmt.Errorf("max processes must be at least 1, got %d", c.MaxProcesses))
	}
	if c.CPUs < 1 {
		errs = append(errs, fmt.Errorf("cpu count must be at least 1, got %d", c.CPUs))
	}
	if c.AccountingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("accounting timeout must be greater than 0, got %s", c.AccountingTimeout))
	}
	if c.DrainInterval <= 0 {
		errs = append(errs, fmt.Errorf("drain interval must be greater than 0, got %s", c.DrainInterval))
	}
	if c.Stdin == nil {
		errs = append(errs, errors.New("console input must not be nil"))
	}
	if c.Stdout == nil {
		errs = append(errs, errors.New("console output must not be nil"))
	}

	return errors.Join(errs...)
}
