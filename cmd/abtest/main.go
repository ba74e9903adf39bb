// Command abtest compares a control and a test bidding group.
package main

import (
	"fmt"
	"os"

	"github.com/yasi-python/abtest/pkg/cli"
)

func main() {
	// Exit-coded errors are printed and handled inside Run.
	if err := cli.App(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
