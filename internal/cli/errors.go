package cli

import (
	"errors"

	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/scenario"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitMissingFactor = 3
	ExitInvalidRuns   = 4
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// withExitCode wraps err in an ExitError whose code reflects the error kind.
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: codeFor(err), Err: err}
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, factors.ErrMissingFactor):
		return ExitMissingFactor
	case errors.Is(err, engine.ErrInvalidRunCount):
		return ExitInvalidRuns
	default:
		return ExitFailure
	}
}

// ExitCode returns the exit code for err: 0 for nil, the carried code for an
// ExitError and otherwise the code of the error kind.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return codeFor(err)
}
