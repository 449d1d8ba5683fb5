package main

import "github.com/mcoot/worldgate/internal/cli"

func main() {
	cli.Execute()
}
