package main

import (
	"os"

	"github.com/viant/sqlite-kdtree/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
