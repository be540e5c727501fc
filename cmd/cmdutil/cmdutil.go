// Package cmdutil holds helpers shared by the subcommands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/buildinfo"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/identifier"
)

// ScopeFlags are the mutually exclusive scope selectors.
type ScopeFlags struct {
	SpatialUnit string
	ActionUnit  string
	Parent      string
}

// Register adds --spatial-unit, --action-unit and --parent to cmd.
func (f *ScopeFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.SpatialUnit, "spatial-unit", "", "Spatial unit id (root scope)")
	cmd.Flags().StringVar(&f.ActionUnit, "action-unit", "", "Action unit id (root scope)")
	cmd.Flags().StringVar(&f.Parent, "parent", "", "Parent recording unit id (nested scope)")
	cmd.MarkFlagsMutuallyExclusive("spatial-unit", "action-unit", "parent")
	cmd.MarkFlagsOneRequired("spatial-unit", "action-unit", "parent")
}

// Descriptor returns the scope descriptor for the flags.
func (f *ScopeFlags) Descriptor() identifier.ScopeDescriptor {
	return identifier.ScopeDescriptor{
		SpatialUnitID:         f.SpatialUnit,
		ActionUnitID:          f.ActionUnit,
		ParentRecordingUnitID: f.Parent,
	}
}

// WithApp builds the application, runs fn with a context cancelled on
// SIGINT or SIGTERM, and closes the application afterwards.
func WithApp(ctx context.Context, settings *conf.Settings, fn func(ctx context.Context, a *app.App) error) (err error) {
	a, err := app.New(settings, buildinfo.Current())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

// PrintYAML writes v as a YAML document.
func PrintYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}
