// Package main implements the cegar CLI. It checks safety properties of
// symbolic transition systems and control flow automata by counterexample
// guided abstraction refinement.
package main

import (
	"os"

	"github.com/l3aro/go-cegar/cmd/cegar/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.Version = version
	commands.BuildTime = buildTime

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
