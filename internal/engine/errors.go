package engine

import (
	"fmt"

	"github.com/rshade/commutesim/internal/scenario"
)

// MaxRuns is the largest run count one evaluation accepts.
const MaxRuns = scenario.MaxRuns

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidRunCount matches any InvalidRunCountError via errors.Is.
const ErrInvalidRunCount = constError("invalid run count")

// InvalidRunCountError reports a run count outside [1, MaxRuns].
type InvalidRunCountError struct {
	Runs int
}

func (e *InvalidRunCountError) Error() string {
	return fmt.Sprintf("%s: %d (must be between 1 and %d)", ErrInvalidRunCount, e.Runs, MaxRuns)
}

// Is reports whether target is ErrInvalidRunCount.
func (e *InvalidRunCountError) Is(target error) bool {
	return target == ErrInvalidRunCount
}

// CheckRuns returns an InvalidRunCountError unless 1 <= runs <= MaxRuns.
func CheckRuns(runs int) error {
	if runs < 1 || runs > MaxRuns {
		return &InvalidRunCountError{Runs: runs}
	}
	return nil
}

// Work is the cost of an evaluation in individuals scored. Every run counts
// as at least one individual, so an empty population still pays per run.
func Work(runs, population int) int64 {
	return int64(runs) * int64(max(population, 1))
}
