// Command tsvdb inspects and exports typed tab-delimited datasets.
package main

import (
	"os"

	"github.com/tsvdb/tsvdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
