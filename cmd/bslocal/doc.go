// Package main hosts the bslocal CLI entrypoint and command graph.
//
// The Cobra-based command tree starts and stops the BrowserStack Local tunnel
// binary, reports its status from the persisted state file, and wraps
// arbitrary commands in a tunnel session with `bslocal run`. Configuration
// resolution, logger setup and controller construction live in context.go so
// subcommands only deal with user-facing output.
package main
