package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jobradar/jobradar/internal/housekeeping"
	"github.com/jobradar/jobradar/internal/trigger"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the jobradar matching daemon",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run wires the daemon together and blocks on the trigger subscription
// until SIGINT or SIGTERM.
func run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobradar", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.close()

	retention := config.Retention
	if retention == nil {
		retention = &RetentionConfig{}
	}

	sweeper := housekeeping.NewSweeper(svc.postings, retention.MaxAge, retention.BatchSize, logger)

	cronRunner := cron.New()
	if _, err := sweeper.Register(cronRunner, retention.Schedule); err != nil {
		logger.Fatal("scheduling the retention sweep", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	subscriber, err := trigger.NewSubscriber(svc.rdb, svc.pipeline, logger)
	if err != nil {
		logger.Fatal("building the trigger subscriber", zap.Error(err))
	}

	logger.Info("jobradar is ready")

	if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("trigger subscription failed", zap.Error(err))
	}

	logger.Info("shutting down")
}
