package main

import (
	"os"

	"github.com/inlaymedia/inlay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
