package main

import (
	"os"

	"github.com/AazimAnish/HarMonad/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
