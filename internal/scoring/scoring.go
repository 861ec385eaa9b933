// Package scoring defines the relevance scorer contract and the rate-gated
// queue that serializes calls to the external scoring capability.
package scoring

import (
	"context"

	"github.com/jobradar/jobradar/internal/model"
)

// Assessment is the scorer's verdict for one (profile, posting) candidate.
// Score is always within [0, 100]; Raw preserves the unparsed provider
// response for debugging.
type Assessment struct {
	Score       int
	Reasons     []string
	Weaknesses  []string
	Suggestions []string
	Raw         string
}

// Scorer rates how well a posting fits a search profile. Implementations are
// network-bound; callers must pass a context with an appropriate deadline.
type Scorer interface {
	Score(ctx context.Context, profile *model.SearchProfile, posting *model.Posting) (*Assessment, error)
}

// Clamp forces a raw provider score into the [0, 100] contract range.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
