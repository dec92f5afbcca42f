package main

import (
	"persona-engine/internal/cli"
)

func main() {
	cli.Execute()
}
