// Package main is the entry point for the moodlekit CLI.
package main

import "moodlekit.dev/pkg/moodlekit/cmd"

func main() {
	cmd.Execute()
}
