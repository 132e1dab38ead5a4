// Package main provides the entry point for the dockertree CLI.
package main

import (
	"os"

	"github.com/griffithind/dockertree/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
