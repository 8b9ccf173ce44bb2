package main

import (
	"os"

	"github.com/Rohan-80800/PositLearn-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
