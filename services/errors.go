// services/errors.go
package services

import "errors"

// Sentinel errors surfaced at the service boundary. Handlers map these to
// HTTP statuses; everything else is a 500.
var (
	// ErrUnknownActivityKind: reported kind is not in the reward table.
	// Rejected before any state mutation.
	ErrUnknownActivityKind = errors.New("unknown activity kind")

	// ErrMalformedThresholdTable / ErrMalformedChallengeWindow are
	// configuration-time errors: fatal at startup or on admin input, never
	// surfaced per event.
	ErrMalformedThresholdTable  = errors.New("malformed level threshold table")
	ErrMalformedChallengeWindow = errors.New("malformed challenge window")

	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrCelebrationNotFound = errors.New("celebration event not found")

	// ErrFreezeLimitReached: a learner's streak freeze allowance is capped.
	ErrFreezeLimitReached = errors.New("streak freeze allowance already at cap")
)
