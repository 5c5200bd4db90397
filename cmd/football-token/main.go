// Package main is the entry point for the football-token CLI.
package main

import "github.com/footballdb/football-api/internal/cli"

func main() {
	cli.Execute()
}
