package cmd

import (
	"context"

	"github.com/jobradar/jobradar/internal/housekeeping"
	"github.com/jobradar/jobradar/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove postings past the retention window and exit",
	Run: func(_ *cobra.Command, _ []string) {
		sweep()
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweep() {
	ctx := context.Background()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	pool, err := openPool(ctx, config)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pool.Close()

	retention := config.Retention
	if retention == nil {
		retention = &RetentionConfig{}
	}

	sweeper := housekeeping.NewSweeper(store.NewPostingStore(pool), retention.MaxAge, retention.BatchSize, logger)

	total, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}

	logger.Info("sweep finished", zap.Int64("postings_removed", total))
}
