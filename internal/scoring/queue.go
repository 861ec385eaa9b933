package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/model"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMinDelay       = time.Second
	defaultMaxDelay       = 10 * time.Second
	defaultRequestTimeout = 90 * time.Second
)

// QueueConfig tunes the pacing of calls to the scoring provider.
type QueueConfig struct {
	// MinDelay is the minimum spacing between provider calls.
	MinDelay time.Duration
	// MaxDelay is the backoff ceiling reached after repeated rate limits.
	MaxDelay time.Duration
	// RequestTimeout bounds a single provider call so a hung call cannot
	// stall the whole queue.
	RequestTimeout time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.MinDelay <= 0 {
		c.MinDelay = defaultMinDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}

// Queue serializes scorer calls through a single owner goroutine. Workers
// submitting candidates in parallel deepen the queue; they never increase the
// call rate. The owner goroutine is the only writer of the pacing state, so
// backoff adjustments are race-free. On a rate-limit error the inter-call
// delay doubles up to the ceiling and the error is surfaced to the caller
// rather than retried; after successful calls the delay decays back toward
// the configured minimum.
type Queue struct {
	backend Scorer
	limiter *rate.Limiter
	cfg     QueueConfig
	logger  *zap.Logger

	requests chan *queueRequest
	stop     chan struct{}
	done     chan struct{}

	// delay is touched only by the owner goroutine.
	delay time.Duration
}

type queueRequest struct {
	ctx     context.Context
	profile *model.SearchProfile
	posting *model.Posting
	result  chan queueResult
}

type queueResult struct {
	assessment *Assessment
	err        error
}

var _ Scorer = (*Queue)(nil)

// NewQueue wraps the backend scorer with the rate-gated queue and starts its
// owner goroutine. Close must be called to stop it.
func NewQueue(backend Scorer, cfg QueueConfig, logger *zap.Logger) (*Queue, error) {
	if backend == nil {
		return nil, errors.New("scorer backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()

	q := &Queue{
		backend:  backend,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinDelay), 1),
		cfg:      cfg,
		logger:   logger,
		requests: make(chan *queueRequest),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		delay:    cfg.MinDelay,
	}

	go q.run()

	return q, nil
}

// Score submits the candidate to the queue and waits for the owner goroutine
// to execute it. Safe for concurrent use.
func (q *Queue) Score(ctx context.Context, profile *model.SearchProfile, posting *model.Posting) (*Assessment, error) {
	req := &queueRequest{
		ctx:     ctx,
		profile: profile,
		posting: posting,
		result:  make(chan queueResult, 1),
	}

	select {
	case q.requests <- req:
	case <-q.stop:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.result:
		return res.assessment, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the owner goroutine and waits for it to exit. Pending and
// subsequent submissions fail with ErrQueueClosed.
func (q *Queue) Close() {
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		select {
		case <-q.stop:
			return
		case req := <-q.requests:
			q.handle(req)
		}
	}
}

func (q *Queue) handle(req *queueRequest) {
	if err := req.ctx.Err(); err != nil {
		req.result <- queueResult{err: err}
		return
	}

	if err := q.limiter.Wait(req.ctx); err != nil {
		req.result <- queueResult{err: fmt.Errorf("waiting for scorer slot: %w", err)}
		return
	}

	callCtx, cancel := context.WithTimeout(req.ctx, q.cfg.RequestTimeout)
	assessment, err := q.backend.Score(callCtx, req.profile, req.posting)
	cancel()

	q.adjust(err)

	req.result <- queueResult{assessment: assessment, err: err}
}

func (q *Queue) adjust(err error) {
	next := nextDelay(q.delay, q.cfg.MinDelay, q.cfg.MaxDelay, err)
	if next == q.delay {
		return
	}

	q.logger.Debug("scorer pacing adjusted",
		zap.Duration("previous_delay", q.delay),
		zap.Duration("next_delay", next),
	)

	q.delay = next
	q.limiter.SetLimit(rate.Every(next))
}

// nextDelay implements the pacing policy: double on a rate-limit error up to
// the ceiling, decay toward the base after a success, hold otherwise.
func nextDelay(current, base, ceiling time.Duration, err error) time.Duration {
	switch {
	case errors.Is(err, ErrRateLimited):
		next := current * 2
		if next > ceiling {
			next = ceiling
		}
		return next
	case err == nil && current > base:
		next := time.Duration(float64(current) * 0.9)
		if next < base {
			next = base
		}
		return next
	default:
		return current
	}
}
