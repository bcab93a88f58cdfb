package main

import (
	"os"

	"github.com/adamwoolhether/netdav/cmd/netdav/cmd"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
