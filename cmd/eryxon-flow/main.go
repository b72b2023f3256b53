package main

import (
	"fmt"
	"os"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
