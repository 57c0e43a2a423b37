package cli

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/report"
	"github.com/rshade/commutesim/internal/snapshot"
)

// errReplayMismatch reports a replay that did not reproduce the snapshot.
var errReplayMismatch = errors.New("replayed result differs from snapshot")

// NewReplayCmd creates the replay command, which re-runs an exported snapshot.
func NewReplayCmd() *cobra.Command {
	var (
		factorsPath string
		output      string
		verify      bool
	)

	cmd := &cobra.Command{
		Use:   "replay <snapshot-file>",
		Short: "Re-run the evaluation recorded in a snapshot",
		Long: `Rebuilds the scenario, seed and run count from a snapshot written by
evaluate --export and evaluates it again. With --verify the command fails
unless the result matches the recorded one exactly.`,
		Example: `  commutesim replay snapshot.yaml
  commutesim replay snapshot.json --verify --factors factors.csv`,
		Args: requireArgs("snapshot file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg := config.GetGlobalConfig()
			format, err := report.ParseFormat(firstNonEmpty(output, appCfg.Output.DefaultFormat))
			if err != nil {
				return err
			}

			snap, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := snap.Config()
			if err != nil {
				return withExitCode(err)
			}
			table, err := loadFactors(appCfg, factorsPath)
			if err != nil {
				return withExitCode(err)
			}
			if snap.FactorDigest != "" && snap.FactorDigest != table.Digest() {
				cmd.PrintErrf("Warning: factor table %q differs from the one recorded (%s)\n",
					table.Name(), snap.FactorTable)
			}

			e, err := engine.New(engineOptions(appCfg, 0)...)
			if err != nil {
				return err
			}
			seed := snap.Seed
			result, err := e.Evaluate(cmd.Context(), cfg, table, snap.Runs, &seed)
			if err != nil {
				return withExitCode(err)
			}

			if verify {
				if snap.Result == nil || !reflect.DeepEqual(snap.Result.Total, result.Total) ||
					!reflect.DeepEqual(snap.Result.PerCapita, result.PerCapita) {
					return fmt.Errorf("%w: %s", errReplayMismatch, args[0])
				}
				cmd.PrintErrf("Replay of %s matches the recorded result\n", snap.ID)
			}

			return report.Render(cmd.OutOrStdout(), result, format, report.Options{Precision: appCfg.Output.Precision})
		},
	}

	cmd.Flags().StringVar(&factorsPath, "factors", "", "emission factor table (default: built-in or configured)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table, json or yaml (default: config)")
	cmd.Flags().BoolVar(&verify, "verify", false, "fail unless the replay reproduces the recorded totals")

	return cmd
}
