// bb84sim simulates BB84 key exchanges from the command line.
package main

import (
	"log"
	"os"

	"github.com/alan-christopher/bb84sim/cmd/bb84sim/commands"
)

func main() {
	log.SetPrefix("bb84sim: ")
	// Errors are printed by the printer package with color formatting
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
