package main

import "github.com/vietddude/epicmint/internal/cli"

func main() {
	cli.Execute()
}
