/*
Package main is the entry point for the cofounder CLI.

cofounder is an HTTP gateway that turns business questions into
AI-generated analyses, grounding each prompt in the most relevant
analyses it has produced before.

Usage:

	cofounder [command]

Available Commands:

	serve       Run the analysis HTTP API
	analyze     Run an analysis without starting the server
	mcp         Serve the analyses as MCP tools (stdio transport)
	history     Inspect, export or clear stored analyses
	benchmark   Compare prompt context: full history vs retrieval
	init        Write a default configuration file
	verify      Verify configuration and the history store
	version     Print version information

Examples:

	# Write a config, then serve on :8000
	cofounder init
	cofounder serve

	# One-off analysis
	cofounder analyze news fintech
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/cofounder-hub/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
