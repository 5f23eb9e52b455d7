// Package main is the entry point for the ninjaturtles CLI.
package main

import "gooze.dev/pkg/ninjaturtles/cmd"

func main() {
	cmd.Execute()
}
