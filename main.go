package main

import (
	"os"

	"github.com/coralpages/reef/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
