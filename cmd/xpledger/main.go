// Package main is the xpledger binary: the XP ledger engine's CLI and HTTP
// server in one executable.
package main

import "github.com/atlantyde-labs/cognitive-suite/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
