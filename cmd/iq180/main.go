package main

import "github.com/mcoot/iq180/internal/cli"

func main() {
	cli.Execute()
}
