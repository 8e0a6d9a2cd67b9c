// cmd/jirasync/root.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/checkpoint"
	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/connector"
	"github.com/danexplore/JiraSQL/pkg/converter"
	"github.com/danexplore/JiraSQL/pkg/store"
	"github.com/danexplore/JiraSQL/pkg/transfer"
)

type syncOptions struct {
	envFiles []string
	kinds    []string
	force    bool
	full     bool
	dryRun   bool
}

func newRootCmd() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:           "jirasync",
		Short:         "Synchronize Jira production tickets into the relational store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.envFiles, "env-file", []string{".env"}, "Env file loaded before the environment (repeatable)")
	cmd.Flags().StringArrayVar(&opts.kinds, "kind", nil, "Record kind to synchronize: issues or disciplinas (repeatable, default SYNC_KINDS)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Run even if already synchronized today")
	cmd.Flags().BoolVar(&opts.full, "full", false, "Ignore checkpoints and reconcile every row")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Fetch and convert without writing")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for _, kind := range opts.kinds {
			if kind != config.KindIssues && kind != config.KindDisciplines {
				return withCode(exitUsage, fmt.Errorf("invalid --kind %q: expected %s or %s", kind, config.KindIssues, config.KindDisciplines))
			}
		}
		return nil
	}

	return cmd
}

func runSync(ctx context.Context, opts syncOptions) error {
	cfg, err := config.LoadConfig(opts.envFiles...)
	if err != nil {
		return withCode(exitConfig, err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return withCode(exitConfig, err)
	}
	defer logger.Sync()
	defer zap.ReplaceGlobals(logger)()

	factory := connector.NewConnectorFactory(cfg)

	conn, err := factory.CreateStoreConnector(ctx)
	if err != nil {
		return withCode(exitPersistence, fmt.Errorf("failed to connect to store: %w", err))
	}
	defer conn.Close()
	connector.LogPoolStats(logger, "store", conn.DB().DB)

	client, err := factory.CreateJiraClient()
	if err != nil {
		return withCode(exitConfig, err)
	}

	metrics := transfer.NewSyncMetrics(logger.Named("metrics"))
	engine, err := store.NewEngine(conn.DB(),
		store.WithLogger(logger.Named("store")),
		store.WithStageObserver(metrics.ObserveStage))
	if err != nil {
		return withCode(exitPersistence, err)
	}

	manager := transfer.NewManager(transfer.Deps{
		Config:      cfg,
		Source:      client,
		Store:       engine,
		Verifier:    transfer.NewVerifier(conn.DB(), logger.Named("verifier")),
		Checkpoints: checkpoint.NewFileStore(cfg.Sync.CheckpointDir),
		Converter: converter.NewIssueConverter(logger.Named("converter"), converter.IssueConverterConfig{
			Fields:    cfg.Jira.Fields,
			BrowseURL: client.BrowseURL,
			Now:       clockIn(cfg.Sync.Location),
		}),
		Metrics: metrics,
		Logger:  logger.Named("transfer"),
	})

	summary, err := manager.Run(ctx, transfer.RunOptions{
		Kinds:  opts.kinds,
		Force:  opts.force,
		Full:   opts.full,
		DryRun: opts.dryRun,
	})
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	logger.Info("Run finished",
		zap.Int("kinds", len(summary.Results)),
		zap.Duration("duration", summary.Duration))
	return nil
}

// clockIn reports the current time in loc, the local zone when loc is nil
func clockIn(loc *time.Location) func() time.Time {
	if loc == nil {
		return time.Now
	}
	return func() time.Time { return time.Now().In(loc) }
}
