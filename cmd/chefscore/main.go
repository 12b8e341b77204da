package main

import "github.com/riskibarqy/chefscore/internal/cli"

func main() {
	cli.Execute()
}
