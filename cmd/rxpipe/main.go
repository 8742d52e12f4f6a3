// Command rxpipe runs reactive line pipelines described in YAML.
package main

import (
	"fmt"
	"os"

	"github.com/baxromumarov/rx/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
