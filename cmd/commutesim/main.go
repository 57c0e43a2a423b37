// Command commutesim estimates commuting and working-from-home emissions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rshade/commutesim/internal/cli"
	"github.com/rshade/commutesim/pkg/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := cli.NewRootCmd(version.GetVersion())
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return cli.ExitCode(err)
}
