package scenario

import (
	"fmt"
	"strings"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrConfiguration matches any ConfigurationError via errors.Is.
var ErrConfiguration = constError("invalid scenario configuration")

// Problem is a single validation failure.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Field == "" {
		return p.Message
	}
	return p.Field + ": " + p.Message
}

// ConfigurationError lists every problem found in a scenario. A scenario with
// any problem is rejected as a whole.
type ConfigurationError struct {
	Problems []Problem
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Problems[0])
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s: %d problems: %s", ErrConfiguration, len(e.Problems), strings.Join(parts, "; "))
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
