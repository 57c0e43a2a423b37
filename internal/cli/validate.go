package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/scenario"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Check a scenario file without evaluating it",
		Long: `Validates a scenario document and lists every problem found: shares that do
not sum to one, invalid distributions, out-of-range fields and unknown keys.`,
		Example: `  commutesim validate scenario.yaml`,
		Args:    requireArgs("scenario file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExitCode(runValidate(cmd, args[0]))
		},
	}
}

func runValidate(cmd *cobra.Command, path string) error {
	_, _, err := loadScenario(path)
	var cerr *scenario.ConfigurationError
	switch {
	case err == nil:
		cmd.Printf("%s is valid\n", path)
		return nil
	case errors.As(err, &cerr):
		cmd.Printf("%s has %d problem(s):\n", path, len(cerr.Problems))
		for _, p := range cerr.Problems {
			if p.Field == "" {
				cmd.Printf("  - %s\n", p.Message)
				continue
			}
			cmd.Printf("  - %s: %s\n", p.Field, p.Message)
		}
		return err
	default:
		return err
	}
}
