// Command clipforge runs the clip capture daemon and talks to it over its
// local API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		// Interrupted; cobra has nothing useful to add.
		return 1
	default:
		fmt.Fprintln(os.Stderr, "clipforge:", err)
		return 1
	}
}
