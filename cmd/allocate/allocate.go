// Package allocate implements the allocate subcommand.
package allocate

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/fieldarchive/unitlabel/cmd/cmdutil"
	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/identifier"
)

type options struct {
	scope       cmdutil.ScopeFlags
	conceptType string
	pad         int
	unitID      string
	legacyLabel string
	spatialSeq  int64
	actionText  string
	dryRun      bool
}

// Command creates the allocate command.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate the next identifier for a recording unit",
		Long: `Allocate the next identifier for a recording unit in a scope.

A root scope is a spatial unit or an action unit; a nested scope is a parent
recording unit. With --dry-run the next label is shown without being consumed.`,
		Example: `  unitlabel allocate --spatial-unit su-12 --type stratigraphic-unit
  unitlabel allocate --parent 3f0c... --type sample --pad 2
  unitlabel allocate --action-unit au-4 --type structure --legacy-label ST-old-7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.WithApp(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				return run(ctx, cmd, a, opts)
			})
		},
	}

	opts.scope.Register(cmd)
	cmd.Flags().StringVarP(&opts.conceptType, "type", "t", "", "Concept type key")
	cmd.Flags().IntVar(&opts.pad, "pad", 0, "Zero-pad length override")
	cmd.Flags().StringVar(&opts.unitID, "unit-id", "", "Recording unit id (generated when empty)")
	cmd.Flags().StringVar(&opts.legacyLabel, "legacy-label", "", "Store this label verbatim instead of rendering one")
	cmd.Flags().Int64Var(&opts.spatialSeq, "spatial-unit-seq", 0, "Spatial unit sequence number to record")
	cmd.Flags().StringVar(&opts.actionText, "action-unit-text", "", "Action unit identifier text to record")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the next label without allocating")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func (o *options) request(cmd *cobra.Command) identifier.AllocateRequest {
	req := identifier.AllocateRequest{
		Scope:           o.scope.Descriptor(),
		ConceptTypeKey:  o.conceptType,
		RecordingUnitID: o.unitID,
		LegacyLabel:     o.legacyLabel,
	}
	if cmd.Flags().Changed("pad") {
		req.FormatLength = &o.pad
	}
	if cmd.Flags().Changed("spatial-unit-seq") {
		req.SpatialUnitSequenceNumber = &o.spatialSeq
	}
	if cmd.Flags().Changed("action-unit-text") {
		req.ActionUnitIdentifierText = &o.actionText
	}
	return req
}

func run(ctx context.Context, cmd *cobra.Command, a *app.App, o *options) error {
	req := o.request(cmd)
	out := cmd.OutOrStdout()
	if o.dryRun {
		return preview(ctx, out, a, req)
	}

	snap, err := a.Service.AllocateIdentifier(ctx, req)
	if err != nil {
		return err
	}
	return cmdutil.PrintYAML(out, snap)
}

func preview(ctx context.Context, out io.Writer, a *app.App, req identifier.AllocateRequest) error {
	p, err := a.Service.Preview(ctx, req)
	if err != nil {
		return err
	}
	return cmdutil.PrintYAML(out, p)
}
