// cmd/sweep.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/observability"
	"github.com/xkilldash9x/storefront-harness/internal/service"
)

func newSweepCmd(factory service.ComponentFactory) *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Kill stray browser processes left behind by earlier runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engines := browser.Engines
			if engine != "" {
				kind, ok := browser.ParseEngineKind(engine)
				if !ok {
					return fmt.Errorf("unknown engine %q", engine)
				}
				engines = []browser.EngineKind{kind}
			}

			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := observability.GetLogger().Named("sweep")

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize harness: %w", err)
			}

			var errs []error
			for _, kind := range engines {
				if err := components.Harness.Recovery().ForceTerminateProcesses(ctx, kind); err != nil {
					errs = append(errs, err)
					continue
				}
				logger.Info("Swept engine processes.", zap.String("engine", string(kind)))
				fmt.Fprintf(cmd.OutOrStdout(), "swept %s\n", kind)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "only sweep this engine (default all)")
	return cmd
}
