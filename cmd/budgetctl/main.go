package main

import "github.com/rongwang/budget-server/cmd/budgetctl/commands"

func main() {
	commands.Execute()
}
