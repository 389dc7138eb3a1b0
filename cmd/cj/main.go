package main

import (
	"fmt"
	"os"

	"github.com/bjoernd/cj/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code, ok := cmd.ExitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
