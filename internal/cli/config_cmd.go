package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
// Inside a project (a .commutesim/ directory was found or --project-dir was
// given) it writes the project overlay; otherwise the user configuration.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

Inside a project, creates $PROJECT/.commutesim/config.yaml with a .gitignore
that keeps cache and log files out of version control. Use --global to write
~/.commutesim/config.yaml even inside a project.`,
		Example: `  # Create project-local configuration (inside a project)
  commutesim config init

  # Create the user configuration
  commutesim config init --global

  # Overwrite an existing file
  commutesim config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := projectDirFromContext(cmd.Context())
			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}
			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "write the user configuration even inside a project")

	return cmd
}

// initProjectConfig creates project-local config at projectDir/config.yaml with .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, config.FileName)
	if err := checkWritable(configPath, force); err != nil {
		return err
	}

	if err := config.Default().Save(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Never overwrites an existing .gitignore.
	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep cache and logs out of version control\n")
	}
	return nil
}

// initGlobalConfig creates the user config at ~/.commutesim/config.yaml.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	path := config.DefaultPath()
	if err := checkWritable(path, force); err != nil {
		return err
	}
	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", path)
	return nil
}

func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}

// NewConfigShowCmd creates the config show command, which prints the
// effective configuration after files and environment are applied.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Example: `  commutesim config show
  COMMUTESIM_WORKERS=4 commutesim config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GetGlobalConfig().YAML()
			if err != nil {
				return err
			}
			cmd.Print(string(data))
			return nil
		},
	}
}

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		Long: `Validates ~/.commutesim/config.yaml and, inside a project, the project
overlay merged over it.`,
		Example: `  commutesim config validate
  commutesim config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate loads each configuration layer strictly, so a broken file
// is reported instead of silently skipped.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return withExitCode(fmt.Errorf("configuration validation failed: %w", err))
	}

	if projectDir := projectDirFromContext(cmd.Context()); projectDir != "" {
		overlay := filepath.Join(projectDir, config.FileName)
		if _, statErr := os.Stat(overlay); statErr == nil {
			if err := config.ShallowMergeYAML(cfg, overlay); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			config.ApplyEnv(cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %s: %w", overlay, err)
			}
		}
	}

	cmd.Printf("Configuration is valid\n")
	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Output format: %s\n", cfg.Output.DefaultFormat)
	cmd.Printf("  Output precision: %d\n", cfg.Output.Precision)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	cmd.Printf("  Workers: %d\n", cfg.EffectiveWorkers())
	cmd.Printf("  Default runs: %d\n", cfg.Engine.DefaultRuns)
	if cfg.Cache.Enabled {
		cmd.Printf("  Cache: %s (ttl %ds)\n", cfg.CacheDirectory(), cfg.Cache.TTLSeconds)
	} else {
		cmd.Println("  Cache: disabled")
	}
	cmd.Printf("  Server: %s\n", cfg.Server.Listen)
}
