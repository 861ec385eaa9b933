// Package trigger listens on redis pub/sub for the events that start
// matching runs: freshly ingested postings and edited search profiles.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channels the ingester and the profile service publish on.
const (
	ChannelNewPostings    = "postings.new"
	ChannelProfileUpdated = "profiles.updated"
)

const (
	reconnectDelay    = 5 * time.Second
	payloadLogPreview = 200
)

// Runner starts matching runs. Satisfied by the matching pipeline.
type Runner interface {
	MatchNewPostings(ctx context.Context, postingIDs []string) (*model.RunStats, error)
	RecomputeProfile(ctx context.Context, userID, profileID string) (*model.RunStats, error)
}

// Subscriber consumes trigger messages and dispatches them to the runner,
// one run at a time. Dropped messages are safe to lose permanently: the next
// postings trigger or a recompute covers the same ground, and the ledger
// keeps replays idempotent.
type Subscriber struct {
	client *redis.Client
	runner Runner
	log    *zap.Logger
}

func NewSubscriber(client *redis.Client, runner Runner, log *zap.Logger) (*Subscriber, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{client: client, runner: runner, log: log}, nil
}

// Run blocks consuming triggers until the context is canceled. Subscription
// failures are retried with a fixed delay.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.listen(ctx)
		if err == nil || ctx.Err() != nil {
			return err
		}

		s.log.Warn("trigger subscription dropped, reconnecting",
			zap.Error(err),
			zap.Duration("delay", reconnectDelay),
		)
		if err := utils.WaitFor(ctx, reconnectDelay); err != nil {
			return err
		}
	}
}

func (s *Subscriber) listen(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, ChannelNewPostings, ChannelProfileUpdated)
	defer pubsub.Close()

	// Receive confirms the subscription before we commit to the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to triggers: %w", err)
	}

	s.log.Info("listening for triggers",
		zap.Strings("channels", []string{ChannelNewPostings, ChannelProfileUpdated}),
	)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("subscription channel closed")
			}
			s.handleMessage(ctx, msg.Channel, msg.Payload)
		}
	}
}

type postingsTrigger struct {
	PostingIDs []string `json:"postingIds"`
}

type profileTrigger struct {
	UserID    string `json:"userId"`
	ProfileID string `json:"profileId"`
}

// handleMessage dispatches one trigger. Malformed payloads are logged and
// dropped; a bad message must not wedge the subscription.
func (s *Subscriber) handleMessage(ctx context.Context, channel, payload string) {
	switch channel {
	case ChannelNewPostings:
		var trig postingsTrigger
		if err := json.Unmarshal([]byte(payload), &trig); err != nil {
			s.dropPayload(channel, payload, err)
			return
		}
		if len(trig.PostingIDs) == 0 {
			s.dropPayload(channel, payload, errors.New("no posting ids"))
			return
		}

		s.log.Info("postings trigger received", zap.Int("postings", len(trig.PostingIDs)))
		if _, err := s.runner.MatchNewPostings(ctx, trig.PostingIDs); err != nil {
			s.log.Error("matching run failed", zap.Error(err))
		}

	case ChannelProfileUpdated:
		var trig profileTrigger
		if err := json.Unmarshal([]byte(payload), &trig); err != nil {
			s.dropPayload(channel, payload, err)
			return
		}
		if trig.UserID == "" {
			s.dropPayload(channel, payload, errors.New("no user id"))
			return
		}

		s.log.Info("profile trigger received",
			zap.String(logger.FieldUser, trig.UserID),
			zap.String(logger.FieldProfile, trig.ProfileID),
		)
		if _, err := s.runner.RecomputeProfile(ctx, trig.UserID, trig.ProfileID); err != nil {
			s.log.Error("recompute run failed", zap.Error(err))
		}

	default:
		s.log.Debug("ignoring message on unexpected channel", zap.String("channel", channel))
	}
}

func (s *Subscriber) dropPayload(channel, payload string, err error) {
	s.log.Warn("dropping malformed trigger",
		zap.String("channel", channel),
		zap.String("payload", logger.TruncateForLog(payload, payloadLogPreview)),
		zap.Error(err),
	)
}
