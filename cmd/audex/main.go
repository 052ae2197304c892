package main

import (
	"os"

	"github.com/mfigueroa/audex/cmd/audex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
