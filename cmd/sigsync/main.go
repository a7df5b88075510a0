// sigsync keeps C++ function declarations and definitions in sync.
// Edit one side of a signature and the other follows.
package main

import (
	"os"

	"github.com/corey/sigsync/cmd/sigsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
