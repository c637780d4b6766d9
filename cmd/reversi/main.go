package main

import "github.com/akumm2k/reversi/internal/cli"

func main() {
	cli.Execute()
}
