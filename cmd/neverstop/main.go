package main

import (
	"os"

	"github.com/oeoc/neverstop/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
