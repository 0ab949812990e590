package main

import "github.com/sh1Nome/extract-streams-web/cmd"

func main() {
	cmd.Execute()
}
