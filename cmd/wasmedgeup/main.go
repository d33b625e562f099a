package main

import "github.com/wasmedge/wasmedgeup/internal/cli"

func main() {
	cli.Execute()
}
