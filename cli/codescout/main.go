package main

import (
	"os"

	codescoutcmder "github.com/codescoutco/codescout/cmd/codescout"
)

func main() {
	cmd := codescoutcmder.NewCodescoutCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
