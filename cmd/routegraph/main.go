// Command routegraph analyzes payment routing rule programs and checks
// connector eligibility against merchant knowledge graphs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/routegraph/internal/cli"
	"github.com/roach88/routegraph/internal/config"
)

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}

	logger, err := config.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	defer func() { _ = logger.Sync() }()

	if err := cli.NewRootCommand(logger).Execute(); err != nil {
		// Command output already went to stdout; stderr carries the cause.
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logger.Sync()
		os.Exit(cli.GetExitCode(err))
	}
}
