package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultFeedLength = 100

// FeedSender prepends alerts to the user's in-app feed, a capped redis list.
type FeedSender struct {
	client     *redis.Client
	maxEntries int64
}

func NewFeedSender(client *redis.Client, maxEntries int) *FeedSender {
	if maxEntries <= 0 {
		maxEntries = defaultFeedLength
	}
	return &FeedSender{client: client, maxEntries: int64(maxEntries)}
}

func (s *FeedSender) Name() string { return ChannelInApp }

func feedKey(userID string) string { return "feed:" + userID }

type feedEntry struct {
	Kind      string    `json:"kind"`
	PostingID string    `json:"postingId"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	URL       string    `json:"url,omitempty"`
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *FeedSender) Send(ctx context.Context, event *Event) error {
	entry := feedEntry{
		Kind:      event.Kind,
		PostingID: event.Posting.ID,
		Title:     event.Posting.Title,
		Company:   event.Posting.Company,
		URL:       event.Posting.URL,
		Score:     event.Match.Score,
		Reasons:   event.Match.Reasons,
		CreatedAt: time.Now(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding feed entry: %w", err)
	}

	key := feedKey(event.User.ID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, s.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing feed entry: %w", err)
	}
	return nil
}
