// Command layoutdb manages a home-screen layout store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/layoutdb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own ExitErrors.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
