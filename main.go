// The main package for the catalog-profiler executable.
package main

import (
	"github.com/JakeFAU/catalog-profiler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
