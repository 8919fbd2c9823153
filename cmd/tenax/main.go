// Package main provides the entry point for the tenax CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Rab-crypto/tenax-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
