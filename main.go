// ABOUTME: Entry point for the canvass CLI, HTTP API and MCP server
// ABOUTME: Hands the arguments to the cobra command tree
package main

import (
	"fmt"
	"os"

	"github.com/harperreed/canvass/cli"
)

const version = "0.2.0"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
