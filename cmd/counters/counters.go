// Package counters implements the counters subcommand.
package counters

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldarchive/unitlabel/cmd/cmdutil"
	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
)

// Command creates the counters command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect and tune allocation counters",
	}
	cmd.AddCommand(listCommand(settings), setFormatCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var filter repository.CounterFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				records, err := a.Service.ListCounters(ctx, filter)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SCOPE TYPE\tSCOPE ID\tCONCEPT TYPE\tLAST VALUE\tFORMAT LENGTH")
				for _, r := range records {
					length := "-"
					if r.FormatLength != nil {
						length = strconv.Itoa(*r.FormatLength)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ScopeType, r.ScopeID, r.ConceptTypeID, r.LastValue, length)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&filter.ScopeType, "scope-type", "", "Filter by scope type (spatial_unit, action_unit, recording_unit)")
	cmd.Flags().StringVar(&filter.ScopeID, "scope-id", "", "Filter by scope id")
	cmd.Flags().StringVar(&filter.ConceptTypeID, "concept-type-id", "", "Filter by concept type id")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of rows (0 for all)")
	return cmd
}

func setFormatCommand(settings *conf.Settings) *cobra.Command {
	var (
		scope       cmdutil.ScopeFlags
		conceptType string
		length      int
	)

	cmd := &cobra.Command{
		Use:   "set-format",
		Short: "Set the zero-pad length of a counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				record, err := a.Service.SetFormatLength(ctx, scope.Descriptor(), conceptType, length)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "format length of %s/%s/%s set to %d\n",
					record.ScopeType, record.ScopeID, record.ConceptTypeID, length)
				return nil
			})
		},
	}

	scope.Register(cmd)
	cmd.Flags().StringVarP(&conceptType, "type", "t", "", "Concept type key")
	cmd.Flags().IntVar(&length, "length", 0, "Zero-pad length for new labels")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("length")
	return cmd
}
