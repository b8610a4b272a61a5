package main

import (
	"context"
	"fmt"
	"os"

	"jitbisect/internal/cli"
)

// main is a thin boundary: the root command does the work, and every error
// is translated to the tool's semantic exit code here.
func main() {
	root := cli.NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCodeFor(err))
	}
}
