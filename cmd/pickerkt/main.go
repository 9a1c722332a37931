package main

import (
	"os"

	"github.com/solatis/pickerkt/cmd/pickerkt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
