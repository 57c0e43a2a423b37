package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/snapshot"
	"github.com/rshade/commutesim/pkg/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("commutesim %s\n", ver)
			if commit := version.GetGitCommit(); commit != "" {
				cmd.Printf("  commit:   %s\n", commit)
			}
			if date := version.GetBuildDate(); date != "" {
				cmd.Printf("  built:    %s\n", date)
			}
			cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			cmd.Printf("  snapshot: schema %s\n", snapshot.SchemaVersion)
		},
	}
}
