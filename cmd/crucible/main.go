package main

import "crucible/internal/cli"

func main() {
	cli.Execute()
}
