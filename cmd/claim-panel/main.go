package main

import "github.com/claim-panel/tui/internal/commands"

func main() {
	commands.Execute()
}
