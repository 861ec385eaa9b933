// Package housekeeping prunes postings past their retention window. Match
// records referencing a pruned posting go with it.
package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultRetention  = 90 * 24 * time.Hour
	defaultSweepBatch = 400
	defaultSchedule   = "@daily"
	sweepRunTimeLimit = 5 * time.Minute
)

// Deleter removes at most limit postings older than the cutoff and reports
// how many went.
type Deleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Sweeper deletes stale postings in bounded batches so a large backlog
// never holds long row locks.
type Sweeper struct {
	deleter   Deleter
	retention time.Duration
	batchSize int
	log       *zap.Logger
}

func NewSweeper(deleter Deleter, retention time.Duration, batchSize int, log *zap.Logger) *Sweeper {
	if retention <= 0 {
		retention = defaultRetention
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{deleter: deleter, retention: retention, batchSize: batchSize, log: log}
}

// Sweep removes everything older than the retention window and returns the
// number of postings deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := s.deleter.DeleteOlderThan(ctx, cutoff, s.batchSize)
		if err != nil {
			return total, err
		}
		total += n

		if n < int64(s.batchSize) {
			break
		}
	}

	if total > 0 {
		s.log.Info("stale postings removed",
			zap.Int64("postings", total),
			zap.Time("cutoff", cutoff),
		)
	}
	return total, nil
}

// Register schedules the sweep on the cron runner. An empty schedule means
// daily.
func (s *Sweeper) Register(c *cron.Cron, schedule string) (cron.EntryID, error) {
	if schedule == "" {
		schedule = defaultSchedule
	}

	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepRunTimeLimit)
		defer cancel()

		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("retention sweep failed", zap.Error(err))
		}
	})
}
