// Package requestctx carries the authenticated caller through request
// handling.
package requestctx

import "context"

// Caller is the authenticated identity and presentation preferences of one
// request.
type Caller struct {
	UserID string
	Locale string
}

type callerContextKey struct{}

// WithCaller stores the caller in context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller stored in context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok
}

// UserIDFromContext returns the caller's user id, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	caller, _ := CallerFromContext(ctx)
	return caller.UserID
}

// LocaleFromContext returns the caller's negotiated locale, or "".
func LocaleFromContext(ctx context.Context) string {
	caller, _ := CallerFromContext(ctx)
	return caller.Locale
}
