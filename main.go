package main

import (
	"os"

	"github.com/evroam/roaminghub/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
