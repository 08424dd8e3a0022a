// Package main provides crawlsim, a developer harness that loads content,
// validates it and runs arena duels or short dungeon scenes from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
