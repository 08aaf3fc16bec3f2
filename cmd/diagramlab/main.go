// Command diagramlab plays diagram labeling games from blueprints and
// action scripts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/diagramlab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
