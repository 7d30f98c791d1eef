// Package main provides the launcher CLI.
package main

import "launcher/cmd/launcher/cmd"

func main() {
	cmd.Execute()
}
