package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/jobradar/jobradar/internal/model"

	"go.uber.org/zap"
)

type recomputeCall struct {
	userID    string
	profileID string
}

type stubRunner struct {
	matchCalls [][]string
	recomputes []recomputeCall
	err        error
}

func (r *stubRunner) MatchNewPostings(ctx context.Context, postingIDs []string) (*model.RunStats, error) {
	r.matchCalls = append(r.matchCalls, postingIDs)
	return &model.RunStats{}, r.err
}

func (r *stubRunner) RecomputeProfile(ctx context.Context, userID, profileID string) (*model.RunStats, error) {
	r.recomputes = append(r.recomputes, recomputeCall{userID: userID, profileID: profileID})
	return &model.RunStats{}, r.err
}

func newTestSubscriber(t *testing.T) (*Subscriber, *stubRunner) {
	t.Helper()

	runner := &stubRunner{}
	s := &Subscriber{runner: runner, log: zap.NewNop()}
	return s, runner
}

func TestHandleMessageDispatchesPostings(t *testing.T) {
	s, runner := newTestSubscriber(t)

	s.handleMessage(context.Background(), ChannelNewPostings, `{"postingIds":["a","b","c"]}`)

	if len(runner.matchCalls) != 1 {
		t.Fatalf("matching started %d times, want 1", len(runner.matchCalls))
	}
	got := runner.matchCalls[0]
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("posting ids = %v, want [a b c]", got)
	}
}

func TestHandleMessageDispatchesProfileUpdate(t *testing.T) {
	s, runner := newTestSubscriber(t)

	s.handleMessage(context.Background(), ChannelProfileUpdated, `{"userId":"u1","profileId":"p1"}`)

	if len(runner.recomputes) != 1 {
		t.Fatalf("recompute started %d times, want 1", len(runner.recomputes))
	}
	if runner.recomputes[0] != (recomputeCall{userID: "u1", profileID: "p1"}) {
		t.Fatalf("recompute call = %+v", runner.recomputes[0])
	}
}

func TestHandleMessageAllowsUnscopedProfileUpdate(t *testing.T) {
	s, runner := newTestSubscriber(t)

	s.handleMessage(context.Background(), ChannelProfileUpdated, `{"userId":"u1"}`)

	if len(runner.recomputes) != 1 {
		t.Fatalf("recompute started %d times, want 1", len(runner.recomputes))
	}
	if runner.recomputes[0].profileID != "" {
		t.Fatalf("profile id = %q, want empty", runner.recomputes[0].profileID)
	}
}

func TestHandleMessageDropsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		payload string
	}{
		{name: "postings broken json", channel: ChannelNewPostings, payload: `{"postingIds":`},
		{name: "postings empty ids", channel: ChannelNewPostings, payload: `{"postingIds":[]}`},
		{name: "postings wrong shape", channel: ChannelNewPostings, payload: `"just a string"`},
		{name: "profile broken json", channel: ChannelProfileUpdated, payload: `{{`},
		{name: "profile missing user", channel: ChannelProfileUpdated, payload: `{"profileId":"p1"}`},
		{name: "unknown channel", channel: "postings.deleted", payload: `{"postingIds":["a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, runner := newTestSubscriber(t)

			s.handleMessage(context.Background(), tt.channel, tt.payload)

			if len(runner.matchCalls) != 0 || len(runner.recomputes) != 0 {
				t.Fatalf("malformed payload reached the runner: match=%d recompute=%d",
					len(runner.matchCalls), len(runner.recomputes))
			}
		})
	}
}

func TestHandleMessageSurvivesRunnerFailure(t *testing.T) {
	s, runner := newTestSubscriber(t)
	runner.err = errors.New("scorer credentials rejected")

	s.handleMessage(context.Background(), ChannelNewPostings, `{"postingIds":["a"]}`)
	s.handleMessage(context.Background(), ChannelNewPostings, `{"postingIds":["b"]}`)

	if len(runner.matchCalls) != 2 {
		t.Fatalf("matching started %d times, want 2 (failures must not wedge the loop)", len(runner.matchCalls))
	}
}

func TestNewSubscriberValidates(t *testing.T) {
	if _, err := NewSubscriber(nil, &stubRunner{}, zap.NewNop()); err == nil {
		t.Fatal("expected an error for a nil redis client")
	}
}
