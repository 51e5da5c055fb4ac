// Package ratelimit defines the rate-limit hook consulted before mutating
// attendance and series calls.
package ratelimit

import (
	"context"
	"time"
)

// Action names the operation being limited.
type Action string

const (
	ActionSubmitRSVP   Action = "rsvp.submit"
	ActionWithdrawRSVP Action = "rsvp.withdraw"
	ActionCreateSeries Action = "series.create"
	ActionUpdateSeries Action = "series.update"
	ActionCancelSeries Action = "series.cancel"

	// ActionUpdateInstance covers single-event edits, which also detach a
	// series instance from its template.
	ActionUpdateInstance Action = "event.update"
)

// Decision is the limiter's verdict for one call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether userID may perform action now.
type Limiter interface {
	Allow(ctx context.Context, userID string, action Action) (Decision, error)
}

// AllowAll never limits.
type AllowAll struct{}

// Allow always allows.
func (AllowAll) Allow(context.Context, string, Action) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// LimiterFunc adapts a function to Limiter.
type LimiterFunc func(ctx context.Context, userID string, action Action) (Decision, error)

// Allow calls f.
func (f LimiterFunc) Allow(ctx context.Context, userID string, action Action) (Decision, error) {
	return f(ctx, userID, action)
}
