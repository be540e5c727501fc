// Package cmd assembles the unitlabel command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fieldarchive/unitlabel/cmd/allocate"
	"github.com/fieldarchive/unitlabel/cmd/counters"
	"github.com/fieldarchive/unitlabel/cmd/labels"
	"github.com/fieldarchive/unitlabel/cmd/serve"
	"github.com/fieldarchive/unitlabel/cmd/snapshot"
	"github.com/fieldarchive/unitlabel/internal/buildinfo"
	"github.com/fieldarchive/unitlabel/internal/conf"
)

// RootCommand creates the root command. settings is filled from the
// configuration before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "unitlabel",
		Short:         "Allocate identifiers for archaeological recording units",
		Version:       buildinfo.Current().GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := conf.Load(configFile)
			if err != nil {
				return err
			}
			if debug {
				loaded.Debug = true
			}
			*settings = *loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: search ., ~/.config/unitlabel, /etc/unitlabel)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(settings),
		allocate.Command(settings),
		counters.Command(settings),
		labels.Command(settings),
		snapshot.Command(settings),
	)

	return rootCmd
}
