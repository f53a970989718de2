package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newAcquireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acquire",
		Short: "Download a capped sample for every listed dataset",
		Long: `Reads the identifier list and stores the first rows of each dataset's
first CSV resource. Datasets that already have a sample are skipped without
any network access; per-dataset failures are logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a App) error {
				_, err := a.Acquire(ctx)
				return err
			})
		},
	}
}
