package main

import (
	"os"

	"github.com/hugovk/constellix-dns-sync/cmd/webhook/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
