package main

import (
	"os"

	"github.com/janyojana/sahayak/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
