package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/commutesim/internal/config"
)

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestShallowMergeYAML_SectionsReplaceWhole(t *testing.T) {
	target := config.Default()
	target.Engine.Factors = "/etc/factors.csv"

	overlay := writeOverlay(t, `
engine:
  workers: 3
  batch_size: 200
  default_runs: 50
output:
  default_format: json
`)
	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, 3, target.Engine.Workers)
	assert.Equal(t, 200, target.Engine.BatchSize)
	assert.Equal(t, 50, target.Engine.DefaultRuns)
	assert.Empty(t, target.Engine.Factors, "absent fields of a present section are zeroed")
	assert.Equal(t, "json", target.Output.DefaultFormat)
	assert.Zero(t, target.Output.Precision)
}

func TestShallowMergeYAML_AbsentSectionsPreserved(t *testing.T) {
	target := config.Default()
	want := target.Server

	require.NoError(t, config.ShallowMergeYAML(target, writeOverlay(t, "logging:\n  level: debug\n  format: json\n")))
	assert.Equal(t, "debug", target.Logging.Level)
	assert.Equal(t, want, target.Server)
	assert.True(t, target.Cache.Enabled)
}

func TestShallowMergeYAML_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty file", content: ""},
		{name: "comments only", content: "# nothing here\n"},
		{name: "unknown keys ignored", content: "plugins:\n  x: 1\n"},
		{name: "corrupted yaml", content: "engine: [unclosed", wantErr: true},
		{name: "wrong section type", content: "engine:\n  workers: many\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := config.Default()
			before := *target
			err := config.ShallowMergeYAML(target, writeOverlay(t, tt.content))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, before, *target)
		})
	}
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	require.Error(t, config.ShallowMergeYAML(nil, "x"))
	require.Error(t, config.ShallowMergeYAML(config.Default(), filepath.Join(t.TempDir(), "missing.yaml")))
}
