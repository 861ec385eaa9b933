package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/matching"
	"github.com/jobradar/jobradar/internal/notify"
	"github.com/jobradar/jobradar/internal/scoring"
	"github.com/jobradar/jobradar/internal/scoring/gemini"
	"github.com/jobradar/jobradar/internal/secrets"
	"github.com/jobradar/jobradar/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// newLogger builds the process logger from the global flags.
func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func resolvePostgresDSN(config *Config) (string, error) {
	pg := config.Postgres
	if pg == nil {
		pg = &PostgresConfig{}
	}

	return secrets.Load(secrets.Source{
		Name:  "postgres dsn",
		Value: pg.DSN,
		Env:   "JOBRADAR_POSTGRES_DSN",
		File:  pg.DSNFile,
	})
}

func resolveRedisURL(config *Config) (string, error) {
	rc := config.Redis
	if rc == nil {
		rc = &RedisConfig{}
	}

	return secrets.Load(secrets.Source{
		Name:  "redis url",
		Value: rc.URL,
		Env:   "JOBRADAR_REDIS_URL",
		File:  rc.URLFile,
	})
}

// openPool connects to postgres and applies the schema.
func openPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	dsn, err := resolvePostgresDSN(config)
	if err != nil {
		return nil, fmt.Errorf("%w (set postgres.dsn-file or JOBRADAR_POSTGRES_DSN)", err)
	}

	pool, err := store.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// newScoringQueue builds the provider client and wraps it in the rate gated
// queue that owns all outbound scoring traffic.
func newScoringQueue(ctx context.Context, cfg *ScoringConfig, log *zap.Logger) (*scoring.Queue, error) {
	if cfg == nil {
		cfg = &ScoringConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported scoring provider: %s", cfg.Provider)
	}

	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		Env:  "GEMINI_API_KEY",
		File: gcfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set scoring.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, log.With(zap.String("provider", "gemini")))
	if err != nil {
		return nil, err
	}

	scorerLog := log.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)
	scorer := gemini.NewScorer(generator, scorerLog, gcfg.MaxLogLength)

	return scoring.NewQueue(scorer, scoring.QueueConfig{
		MinDelay:       cfg.MinDelay,
		MaxDelay:       cfg.MaxDelay,
		RequestTimeout: cfg.RequestTimeout,
	}, log)
}

// buildSenders assembles the notification channels the config enables. The
// in-app feed is on unless explicitly disabled; email and push need an
// endpoint.
func buildSenders(config *Config, rdb *redis.Client) ([]notify.Sender, error) {
	nc := config.Notify
	if nc == nil {
		nc = &NotifyConfig{}
	}

	var senders []notify.Sender

	if nc.Email != nil && nc.Email.Enabled {
		if nc.Email.Endpoint == "" {
			return nil, errors.New("notify.email.endpoint is required when email is enabled")
		}
		senders = append(senders, notify.NewEmailSender(nc.Email.Endpoint, nc.Email.From, nc.SendTimeout))
	}

	if nc.Push != nil && nc.Push.Enabled {
		if nc.Push.Endpoint == "" {
			return nil, errors.New("notify.push.endpoint is required when push is enabled")
		}
		senders = append(senders, notify.NewPushSender(nc.Push.Endpoint, nc.SendTimeout))
	}

	if nc.Feed == nil || !nc.Feed.Disabled {
		maxEntries := 0
		if nc.Feed != nil {
			maxEntries = nc.Feed.MaxEntries
		}
		senders = append(senders, notify.NewFeedSender(rdb, maxEntries))
	}

	return senders, nil
}

// services bundles everything a matching run needs.
type services struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	queue    *scoring.Queue
	pipeline *matching.Pipeline
	postings *store.PostingStore
}

// close releases services in dependency order: no more scoring traffic,
// then the clients.
func (s *services) close() {
	if s.queue != nil {
		s.queue.Close()
	}
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildServices(ctx context.Context, config *Config, log *zap.Logger) (*services, error) {
	s := &services{}

	ok := false
	defer func() {
		if !ok {
			s.close()
		}
	}()

	pool, err := openPool(ctx, config)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	log.Info("postgres ready")

	redisURL, err := resolveRedisURL(config)
	if err != nil {
		return nil, fmt.Errorf("%w (set redis.url-file or JOBRADAR_REDIS_URL)", err)
	}

	rdb, err := store.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	s.rdb = rdb
	log.Info("redis ready")

	queue, err := newScoringQueue(ctx, config.Scoring, log)
	if err != nil {
		return nil, err
	}
	s.queue = queue

	senders, err := buildSenders(config, rdb)
	if err != nil {
		return nil, err
	}

	channels := make([]string, 0, len(senders))
	for _, sender := range senders {
		channels = append(channels, sender.Name())
	}
	log.Info("notification channels configured", zap.Strings("channels", channels))

	mc := config.Matching
	if mc == nil {
		mc = &MatchingConfig{}
	}

	matchStore := store.NewMatchStore(pool, mc.BatchSize)
	notifier := notify.New(mc.NotifyThreshold, matchStore, senders, log)

	s.postings = store.NewPostingStore(pool)

	pipeline, err := matching.New(matching.Config{
		PublishThreshold: mc.PublishThreshold,
		NotifyThreshold:  mc.NotifyThreshold,
		Workers:          mc.Workers,
		RunTimeout:       mc.RunTimeout,
		RecomputeWindow:  mc.RecomputeWindow,
		RecomputeLimit:   mc.RecomputeLimit,
	}, matching.Deps{
		Profiles: store.NewProfileStore(pool),
		Postings: s.postings,
		Ledger:   matchStore,
		Scorer:   queue,
		Notifier: notifier,
		Runs:     store.NewRunStore(pool),
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline

	ok = true
	return s, nil
}
