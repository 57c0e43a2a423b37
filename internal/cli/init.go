package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/scenario"
)

// NewInitCmd creates the init command, which writes an example scenario.
func NewInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init [scenario-file]",
		Short: "Write an example scenario to start from",
		Long: `Writes an example scenario covering every mode, working from
home and home heating. The file extension selects YAML or JSON.

With --project, also creates a .commutesim/ directory next to the scenario
with a .gitignore that keeps cache and log files out of version control.`,
		Example: `  commutesim init
  commutesim init office.json --force
  commutesim init scenarios/hq.yaml --project`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "scenario.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(cmd, path, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&project, "project", false, "also create a project .commutesim/ directory")

	return cmd
}

func runInit(cmd *cobra.Command, path string, force, project bool) error {
	format, err := scenario.FormatFromPath(path)
	if err != nil {
		return withExitCode(err)
	}

	if !force {
		_, statErr := os.Stat(path)
		if statErr == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("cannot access %s: %w", path, statErr)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := scenario.Encode(f, scenario.Example(), format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	cmd.Printf("Example scenario written to %s\n", path)

	if !project {
		return nil
	}
	projectDir := filepath.Join(filepath.Dir(path), config.DirName)
	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}
	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	cmd.Printf("Project directory ready at %s\n", projectDir)
	if created {
		cmd.Printf("Created .gitignore to keep cache and logs out of version control\n")
	}
	return nil
}
