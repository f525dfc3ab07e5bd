package main

import (
	"os"

	"github.com/captolab/gpuhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
