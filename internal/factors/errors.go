package factors

import "fmt"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for factor table construction and lookup.
var (
	// ErrMissingFactor matches any MissingFactorError via errors.Is.
	ErrMissingFactor = constError("missing emission factor")

	// ErrInvalidFactor indicates a malformed table entry.
	ErrInvalidFactor = constError("invalid emission factor")

	// ErrUnsupportedFormat indicates a factor file with an unknown extension.
	ErrUnsupportedFormat = constError("unsupported factor table format")
)

// MissingFactorError reports a lookup key that has no entry in the table.
type MissingFactorError struct {
	Key Key
}

func (e *MissingFactorError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingFactor, e.Key)
}

// Is reports whether target is ErrMissingFactor.
func (e *MissingFactorError) Is(target error) bool {
	return target == ErrMissingFactor
}
