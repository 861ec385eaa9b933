package scoring

import "errors"

// Errors classifying scorer failures. The orchestrator treats ErrUnauthorized
// as fatal for the whole run; everything else is per-candidate.
var (
	// ErrRateLimited marks a provider rate-limit rejection. The queue has
	// already recorded it for backoff; the caller decides whether to skip or
	// requeue the candidate.
	ErrRateLimited = errors.New("scorer rate limited")

	// ErrUnauthorized marks rejected credentials. There is no point
	// continuing a run without valid credentials.
	ErrUnauthorized = errors.New("scorer credentials rejected")

	// ErrMalformedResponse marks a provider response that did not parse as
	// the expected shape. Not retryable for this candidate.
	ErrMalformedResponse = errors.New("malformed scorer response")

	// ErrQueueClosed is returned for submissions after the queue shut down.
	ErrQueueClosed = errors.New("scorer queue closed")
)
