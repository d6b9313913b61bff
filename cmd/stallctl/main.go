package main

import "github.com/openkermesse/stallpoints/internal/cli"

func main() {
	cli.Execute()
}
