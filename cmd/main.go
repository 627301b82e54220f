package main

import (
	"os"

	"github.com/quizdrill/quizdrill/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
