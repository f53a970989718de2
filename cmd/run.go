package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var recollect bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run collect (when needed), acquire and profile in order",
		Long: `Runs the whole pipeline. The catalog is only searched when the identifier
list file is missing or --recollect is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a App) error {
				return a.Run(ctx, recollect)
			})
		},
	}
	cmd.Flags().BoolVar(&recollect, "recollect", false, "query the catalog even if the identifier list exists")
	return cmd
}
