// Package notify fans out match alerts to the channels a user has enabled.
// Delivery is best effort; the match ledger is already durable by the time
// a notification fires.
package notify

import (
	"context"
	"sync"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/model"

	"go.uber.org/zap"
)

// KindJobMatch tags events produced by the matching pipeline.
const KindJobMatch = "job-match"

// Channel names. Senders register under one of these and users enable them
// individually.
const (
	ChannelEmail = "email"
	ChannelInApp = "in-app"
	ChannelPush  = "push"
)

// Event is one alert to deliver.
type Event struct {
	Kind    string
	User    *model.User
	Posting *model.Posting
	Match   *model.MatchRecord
}

// Sender delivers an event over a single channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, event *Event) error
}

// Claimer marks a match record notified, granting the claim to exactly one
// caller.
type Claimer interface {
	ClaimNotification(ctx context.Context, userID, profileID, postingID string) (bool, error)
}

const defaultNotifyThreshold = 85

// Notifier gates alerts on the notify threshold, the user's channel
// preferences and the per-record claim, then fans deliveries out in
// parallel.
type Notifier struct {
	threshold int
	claimer   Claimer
	senders   []Sender
	log       *zap.Logger
}

func New(threshold int, claimer Claimer, senders []Sender, log *zap.Logger) *Notifier {
	if threshold <= 0 {
		threshold = defaultNotifyThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{threshold: threshold, claimer: claimer, senders: senders, log: log}
}

// NotifyIfThreshold delivers an alert for a freshly created match when its
// score clears the notify threshold. Failures are logged, never returned;
// a lost alert must not fail the run that produced the match.
func (n *Notifier) NotifyIfThreshold(ctx context.Context, user *model.User, posting *model.Posting, record *model.MatchRecord) {
	if user == nil || posting == nil || record == nil {
		return
	}

	if record.Score < n.threshold {
		return
	}

	n.Notify(ctx, &Event{Kind: KindJobMatch, User: user, Posting: posting, Match: record})
}

// Notify delivers the event over the selected channels, restricted to those
// the user enabled. With no explicit selection the event kind's default
// channel set applies.
func (n *Notifier) Notify(ctx context.Context, event *Event, channels ...string) {
	if event == nil || event.User == nil || event.Posting == nil || event.Match == nil {
		return
	}

	user, record := event.User, event.Match
	log := logger.WithCandidateFields(n.log, user.ID, record.ProfileID, record.PostingID)

	if len(channels) == 0 {
		channels = defaultChannels(event.Kind)
	}

	selected := selectChannels(user, channels)
	if len(selected) == 0 {
		// The claim is left untouched so the record is still eligible if
		// the user enables a channel later.
		log.Debug("no notification channels enabled")
		return
	}

	claimed, err := n.claimer.ClaimNotification(ctx, record.UserID, record.ProfileID, record.PostingID)
	if err != nil {
		log.Warn("claiming notification failed", zap.Error(err))
		return
	}
	if !claimed {
		log.Debug("notification already claimed")
		return
	}

	var wg sync.WaitGroup
	for _, sender := range n.senders {
		if !selected[sender.Name()] {
			continue
		}

		wg.Add(1)
		go func(s Sender) {
			defer wg.Done()
			if err := s.Send(ctx, event); err != nil {
				log.Warn("notification delivery failed",
					zap.String("channel", s.Name()),
					zap.Error(err),
				)
				return
			}
			log.Info("notification delivered",
				zap.String("channel", s.Name()),
				zap.Int("score", record.Score),
			)
		}(sender)
	}
	wg.Wait()
}

// defaultChannels maps an event kind to the channels it fans out on when the
// caller does not pick its own set. Job matches go everywhere.
func defaultChannels(kind string) []string {
	switch kind {
	case KindJobMatch:
		return []string{ChannelEmail, ChannelInApp, ChannelPush}
	default:
		return []string{ChannelInApp}
	}
}

// selectChannels intersects the requested channels with the user's enabled
// ones.
func selectChannels(user *model.User, channels []string) map[string]bool {
	enabled := make(map[string]bool, 3)
	if user.NotifyEmail {
		enabled[ChannelEmail] = true
	}
	if user.NotifyInApp {
		enabled[ChannelInApp] = true
	}
	if user.NotifyPush {
		enabled[ChannelPush] = true
	}

	selected := make(map[string]bool, len(channels))
	for _, channel := range channels {
		if enabled[channel] {
			selected[channel] = true
		}
	}
	return selected
}
