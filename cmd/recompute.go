package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-evaluate recent postings for one user and exit",
	Run: func(cmd *cobra.Command, _ []string) {
		recompute(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().StringP("user", "u", "", "user id to recompute (required)")
	recomputeCmd.Flags().StringP("profile", "p", "", "limit the recompute to one profile id")
	recomputeCmd.MarkFlagRequired("user")
}

// recompute runs one recompute pass outside the daemon, useful after
// fixing a profile by hand.
func recompute(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.close()

	userID := cmd.Flag("user").Value.String()
	profileID := cmd.Flag("profile").Value.String()

	stats, err := svc.pipeline.RecomputeProfile(ctx, userID, profileID)
	if err != nil {
		logger.Fatal("recompute failed", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(pretty))
}
