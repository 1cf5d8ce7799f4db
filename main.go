// Package main is the entry point for the mediakit command line tool.
package main

import (
	"github.com/drgolem/mediakit/cmd"
)

func main() {
	cmd.Execute()
}
