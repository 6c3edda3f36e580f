// Command graft is an interactive conversation harness for the Anthropic
// Messages API with prompt caching, saved conversations and sandboxed file
// and shell tools.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
