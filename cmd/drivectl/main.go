// Command drivectl manages files in a repository-backed drive from the
// command line.
//
// Usage:
//
//	drivectl ls photos --category image
//	drivectl push ./site www --exclude .git
//	drivectl mv --dir photos/2023 archive-2023
package main

import (
	"os"

	"github.com/GriffinCanCode/gitdrive/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
