// Command anfir compiles CUE graph specs into the IR and clones or inlines
// graphs, journaling each request to SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/anfir/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
