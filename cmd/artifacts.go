// cmd/artifacts.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/artifacts"
	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

func newArtifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage stored failure screenshots",
	}
	cmd.AddCommand(newPruneCmd())
	return cmd
}

func newPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete local screenshots older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Artifacts().RetentionDays
			}
			if days < 0 {
				return fmt.Errorf("--days must not be negative, got %d", days)
			}

			logger := observability.GetLogger()
			files, err := artifacts.NewFileSink(cfg.Artifacts().Dir, logger)
			if err != nil {
				return err
			}
			removed, err := files.Prune(cmd.Context(), time.Duration(days)*24*time.Hour)
			logger.Info("Pruned screenshots.", zap.String("dir", files.Dir()), zap.Int("removed", removed), zap.Int("days", days))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d screenshot(s) from %s\n", removed, files.Dir())
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default artifacts.retention_days)")
	return cmd
}
