package main

import (
	"os"

	"github.com/dori/mindmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
