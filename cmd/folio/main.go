// Command folio runs the Folio publishing server and its maintenance
// commands.
package main

import (
	"os"

	"folio/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
