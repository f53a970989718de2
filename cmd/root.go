// Package cmd defines and implements the CLI commands for the catalog-profiler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/acquire"
	"github.com/JakeFAU/catalog-profiler/internal/app"
	"github.com/JakeFAU/catalog-profiler/internal/config"
	"github.com/JakeFAU/catalog-profiler/internal/logging"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	"github.com/JakeFAU/catalog-profiler/internal/worker"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Collect(ctx context.Context) ([]profiler.DatasetID, error)
	Acquire(ctx context.Context) (acquire.Summary, error)
	Profile(ctx context.Context) (worker.Summary, error)
	Run(ctx context.Context, recollect bool) error
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.Build(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "catalog-profiler",
		Short: "Samples CSV datasets from a CKAN catalog and profiles their columns.",
		Long: `catalog-profiler collects dataset identifiers from a CKAN-style catalog,
downloads a capped sample of each dataset's first CSV resource, and appends
per-column semantic labels to a cumulative report. Every stage is resumable:
existing samples are never re-downloaded and the report is only appended to.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Builds the application after flags are parsed and before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); PROFILER_* env vars override it")

	cmd.AddCommand(newCollectCmd())
	cmd.AddCommand(newAcquireCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// withApp runs stage against the App built for cmd and closes it afterwards,
// whether or not the stage failed.
func withApp(cmd *cobra.Command, stage func(ctx context.Context, a App) error) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		appInstance.Close()
		_ = zap.L().Sync()
	}()
	return stage(cmd.Context(), appInstance)
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running stage.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog-profiler:", err)
		os.Exit(1)
	}
}
