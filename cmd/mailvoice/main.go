package main

import "mailvoice/internal/cli"

func main() {
	cli.Execute()
}
