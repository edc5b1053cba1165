// Command enki validates event definitions, raises events and inspects
// raise journals.
package main

import (
	"fmt"
	"os"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
