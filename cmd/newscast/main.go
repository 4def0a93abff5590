// Command newscast turns the day's top news stories into a summarized
// podcast episode.
package main

import (
	"fmt"
	"os"

	"github.com/sevigo/newscast/cmd/newscast/commands"
)

// Set by the release build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
