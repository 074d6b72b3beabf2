// Command persistd hosts the shared persistence factory behind an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/kbukum/persistkit/cmd/persistd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
