// Command webnav is the CLI front end for the browser agent: it drives
// the full Agent Loop (run), hosts the low-level scripted/manual command
// daemon (daemon), and talks to that daemon (ctl), per SPEC_FULL.md §10.3.
package main

import (
	"fmt"
	"os"

	"github.com/webnav-ai/webnav/cmd/webnav/commands"
)

var version = "0.1.0"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
