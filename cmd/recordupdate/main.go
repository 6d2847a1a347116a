// Command recordupdate validates and applies updates to a bibliographic
// record repository.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/recordupdate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
