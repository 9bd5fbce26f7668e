package main

import (
	"fmt"
	"os"

	"github.com/tsubakihara/ringi/internal/interface/cli"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(common.ExitCode(err))
	}
}
