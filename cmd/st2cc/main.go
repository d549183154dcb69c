package main

import (
	"os"

	"github.com/plctools/st2cc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
