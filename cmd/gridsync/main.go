// Command gridsync is the command-line front end of the energy trading
// ledger.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/gridsync/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
