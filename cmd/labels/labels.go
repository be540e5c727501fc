// Package labels implements the labels subcommand.
package labels

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldarchive/unitlabel/cmd/cmdutil"
	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/identifier"
)

// Command creates the labels command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage labels taken outside the allocator",
	}
	cmd.AddCommand(registerCommand(settings), listCommand(settings))
	return cmd
}

func registerCommand(settings *conf.Settings) *cobra.Command {
	var (
		req    identifier.RegisterLabelRequest
		scope  cmdutil.ScopeFlags
		labels []string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Reserve legacy labels so allocation skips them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Scope = scope.Descriptor()
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				for _, label := range labels {
					r := req
					r.Label = label
					entry, err := a.Service.RegisterLegacyLabel(ctx, r)
					if err != nil {
						return fmt.Errorf("register %q: %w", label, err)
					}
					fmt.Fprintf(out, "registered %s (%s, %s)\n", entry.LabelText, entry.ScopeContext, entry.Source)
				}
				return nil
			})
		},
	}

	scope.Register(cmd)
	cmd.Flags().StringVarP(&req.ConceptTypeKey, "type", "t", "", "Concept type key")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "Label text to reserve (repeatable)")
	cmd.Flags().StringVar(&req.RecordingUnitID, "unit-id", "", "Recording unit that carries the label")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var (
		scope       cmdutil.ScopeFlags
		conceptType string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reserved labels of a concept type in a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				entries, err := a.Service.ListLabels(ctx, scope.Descriptor(), conceptType)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "LABEL\tSOURCE\tRECORDING UNIT")
				for _, e := range entries {
					unit := "-"
					if e.RecordingUnitID != nil {
						unit = *e.RecordingUnitID
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.LabelText, e.Source, unit)
				}
				return w.Flush()
			})
		},
	}

	scope.Register(cmd)
	cmd.Flags().StringVarP(&conceptType, "type", "t", "", "Concept type key")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
