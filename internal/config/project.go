package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rshade/commutesim/internal/logging"
)

// EnvProjectDir points at a project directory explicitly.
const EnvProjectDir = "COMMUTESIM_PROJECT_DIR"

// ResolveProjectDir finds the project-local .commutesim directory. It checks,
// in order, flagValue, $COMMUTESIM_PROJECT_DIR and a walk up from startDir
// looking for an existing .commutesim directory. It returns "" when none is
// found and never creates anything.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}
	if envDir := os.Getenv(EnvProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	home := Dir()
	for {
		candidate := filepath.Join(dir, DirName)
		if candidate != home {
			if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NewWithProjectDir resolves the user configuration and then shallow-merges
// projectDir/config.yaml over it. Environment variables keep precedence over
// the project file. A broken overlay is logged and skipped.
func NewWithProjectDir(ctx context.Context, projectDir string) *Config {
	cfg := New()
	if projectDir == "" {
		return cfg
	}

	overlayPath := filepath.Join(projectDir, FileName)
	if _, err := os.Stat(overlayPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn().
				Str("component", "config").
				Str("overlay_path", overlayPath).
				Err(err).
				Msg("cannot read project config")
		}
		return cfg
	}

	merged := *cfg
	if err := ShallowMergeYAML(&merged, overlayPath); err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Str("operation", "merge_project_config").
			Str("overlay_path", overlayPath).
			Err(err).
			Msg("failed to merge project config, using user config")
		return cfg
	}
	ApplyEnv(&merged)
	if err := merged.Validate(); err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Str("operation", "merge_project_config").
			Str("overlay_path", overlayPath).
			Err(err).
			Msg("project config is invalid, using user config")
		return cfg
	}
	return &merged
}

func toAbsProjectDir(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Str("dir", dir).
			Err(err).
			Msg("failed to resolve absolute path for project directory")
		abs = dir
	}
	if filepath.Base(abs) == DirName {
		return abs
	}
	return filepath.Join(abs, DirName)
}
