package main

import "github.com/talkincode/stockroom/cmd/stockroom/commands"

func main() {
	commands.Execute()
}
