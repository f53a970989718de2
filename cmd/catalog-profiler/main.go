package main

import (
	"github.com/JakeFAU/catalog-profiler/cmd"
)

func main() {
	cmd.Execute()
}
