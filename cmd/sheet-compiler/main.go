// Package main provides the CLI entrypoint for sheet-compiler.
//
// sheet-compiler is a config-driven tabular data compiler that:
//   - Loads named tables from csv, xlsx, sqlite or inline fixtures
//   - Compiles targets by merging, enriching and filtering them
//   - Diffs compiled targets against each other
//   - Exports transformed views to xlsx workbooks
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
