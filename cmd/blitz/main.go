package main

import "github.com/mcoot/blitzarena/internal/cli"

func main() {
	cli.Execute()
}
