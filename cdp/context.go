package cdp

import "context"

type ctxKey int

const (
	ctxKeySessionID ctxKey = iota
)

// WithSessionID routes CDP commands executed with the returned context to
// the target attached under sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, sessionID)
}

// GetSessionID returns the CDP session ID stored in ctx, or "" for the
// browser target.
func GetSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(ctxKeySessionID).(string)
	return sid
}
