// Command vecstore runs the vector store tutorial, ad-hoc ingestion and
// search, and the HTTP API against the configured backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/internal/config"
	logpkg "github.com/kailas-cloud/vecstore/internal/logger"
	"github.com/kailas-cloud/vecstore/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by all subcommands, filled in PersistentPreRunE.
type app struct {
	env     string
	dataset string
	table   string

	cfg    config.Config
	logger *zap.Logger

	load    func(env string) (config.Config, error)
	connect func(ctx context.Context, opts ...vecstore.Option) (*vecstore.Client, error)
}

func newApp() *app {
	return &app{load: config.Load, connect: vecstore.New}
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(newApp())
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "vecstore",
		Short:        "Vector store over BigQuery, Redis, Valkey or memory",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVar(&a.dataset, "dataset", "", "dataset name (overrides vector.dataset)")
	root.PersistentFlags().StringVar(&a.table, "table", "", "table name (overrides vector.table)")

	root.AddCommand(
		newDemoCmd(a),
		newAddCmd(a),
		newSearchCmd(a),
		newJobCmd(a),
		newUsageCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := a.load(a.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dataset != "" {
		cfg.Vector.Dataset = a.dataset
	}
	if a.table != "" {
		cfg.Vector.Table = a.table
	}
	logger, err := logpkg.NewLogger(a.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger

	logger.Debug("Config loaded",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)
	return nil
}

// client connects to the configured backend.
func (a *app) client(ctx context.Context, extra ...vecstore.Option) (*vecstore.Client, error) {
	opts, err := clientOptions(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	c, err := a.connect(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", a.cfg.Store.Driver, err)
	}
	return c, nil
}

// store ensures the configured dataset and table and binds a VectorStore to them.
func (a *app) store(ctx context.Context, c *vecstore.Client) (*vecstore.VectorStore, error) {
	if a.cfg.Vector.Dataset == "" || a.cfg.Vector.Table == "" {
		return nil, fmt.Errorf("vector.dataset and vector.table are required")
	}
	if _, created, err := c.Datasets().Ensure(ctx, a.cfg.Vector.Dataset); err != nil {
		return nil, fmt.Errorf("ensure dataset: %w", err)
	} else if created {
		a.logger.Info("Dataset created", zap.String("dataset", a.cfg.Vector.Dataset))
	}
	s, err := c.VectorStore(ctx, a.cfg.Vector.Dataset, a.cfg.Vector.Table, storeOptions(a.cfg)...)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	return s, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vecstore %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
