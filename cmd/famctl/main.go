package main

import (
	"os"

	"github.com/park285/famhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
