// Package snapshot implements the snapshot subcommand.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldarchive/unitlabel/cmd/cmdutil"
	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

// Command creates the snapshot command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read and restore identifier snapshots",
	}
	cmd.AddCommand(showCommand(settings), listCommand(settings), restoreCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show RECORDING_UNIT_ID",
		Short: "Show the identifier snapshot of a recording unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				snap, err := a.Service.GetSnapshot(ctx, args[0])
				if err != nil {
					return err
				}
				return cmdutil.PrintYAML(cmd.OutOrStdout(), snap)
			})
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var scope cmdutil.ScopeFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the snapshots numbered in a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				snaps, err := a.Service.ListSnapshots(ctx, scope.Descriptor())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RECORDING UNIT\tLABEL\tSEQUENCE\tORIGIN")
				for _, s := range snaps {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.RecordingUnitID, s.Label, s.SequenceNumber, s.Origin)
				}
				return w.Flush()
			})
		},
	}

	scope.Register(cmd)
	return cmd
}

func restoreCommand(settings *conf.Settings) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "restore --file SNAPSHOT.yaml",
		Short: "Overwrite a snapshot from a history document",
		Long: `Overwrite a recording unit's identifier snapshot with the contents of a
YAML document, as produced by "snapshot show". Counters are not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(file)
			if err != nil {
				return err
			}
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				restored, err := a.Service.RestoreSnapshot(ctx, snap)
				if err != nil {
					return err
				}
				return cmdutil.PrintYAML(cmd.OutOrStdout(), restored)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Snapshot document to restore")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readSnapshot(path string) (*entities.IdentifierSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap entities.IdentifierSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}
