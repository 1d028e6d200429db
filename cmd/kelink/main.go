package main

import (
	"kelink/cmd/kelink/cmds"
	"os"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
