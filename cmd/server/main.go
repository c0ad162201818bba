package main

import (
	"os"

	"complybook/cmd/server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
