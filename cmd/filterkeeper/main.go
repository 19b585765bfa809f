package main

import (
	"os"

	"github.com/solatis/filterkeeper/cmd/filterkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
