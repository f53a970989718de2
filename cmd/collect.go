package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Query the catalog and write the identifier list",
		Long: `Runs the configured catalog search once and replaces the identifier list
file with the returned dataset ids, in catalog order. A catalog failure is
fatal and leaves any existing list untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a App) error {
				_, err := a.Collect(ctx)
				return err
			})
		},
	}
}
