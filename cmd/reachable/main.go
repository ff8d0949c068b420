package main

import (
	"fmt"
	"os"
)

// Exit status for errors that stop the run before any check executes.
const exitFatal = 3

func main() {
	code, err := execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "reachable:", err)
		os.Exit(exitFatal)
	}
	os.Exit(code)
}
