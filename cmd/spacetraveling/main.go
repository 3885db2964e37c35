// Command spacetraveling serves, builds and publishes the blog, and runs a
// local content API for development.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	err := rootCmd.Execute()
	flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
