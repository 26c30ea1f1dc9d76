package main

import "pdftools/cli"

func main() {
	cli.Execute()
}
