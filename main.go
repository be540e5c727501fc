package main

import (
	"fmt"
	"os"

	"github.com/fieldarchive/unitlabel/cmd"
	"github.com/fieldarchive/unitlabel/internal/conf"
)

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
