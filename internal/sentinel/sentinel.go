package sentinel

var _ error = Error("")

// Error is an immutable error type backed by a string constant, so that
// recoverable kernel errors can be declared const and never reassigned.
//
// Error is comparable, which makes errors.Is match through wrapped chains
// with the default == comparison.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
