// Command choreo validates, runs and replays choreography definitions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/choreo/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
