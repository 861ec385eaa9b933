package store

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunStore keeps one row of aggregate statistics per pipeline run.
type RunStore struct {
	pool *pgxpool.Pool
}

func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

func (s *RunStore) SaveRun(ctx context.Context, stats *model.RunStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (mode, started_at, finished_at, users, profiles, candidates,
			filtered, duplicates, below_threshold, errors, matches_created, notify_eligible)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		stats.Mode, stats.StartedAt, stats.FinishedAt, stats.Users, stats.Profiles, stats.Candidates,
		stats.Filtered, stats.Duplicates, stats.BelowThreshold, stats.Errors, stats.MatchesCreated, stats.NotifyEligible,
	)
	if err != nil {
		return fmt.Errorf("inserting run statistics: %w", err)
	}
	return nil
}
