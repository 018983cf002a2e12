// Command blobify-lang validates, formats and serves .blobify files.
package main

import (
	"os"

	"github.com/blobify/blobify-lang/internal/blobify/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
