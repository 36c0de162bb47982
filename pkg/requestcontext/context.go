// Package requestcontext carries request-scoped values through a
// context.Context so that the checker layers can read them without
// depending on net/http. Middleware writes, everything else reads.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	keyRequestID key = iota
	keyClientIP
	keyUserAgent
	keyNow
)

func lookup[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// RequestID returns the id assigned by the request id middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := lookup[string](ctx, keyRequestID)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func ClientIP(ctx context.Context) string {
	ip, _ := lookup[string](ctx, keyClientIP)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := lookup[string](ctx, keyUserAgent)
	return ua
}

// WithClientMetadata stores the caller's address and user agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(context.WithValue(ctx, keyClientIP, clientIP), keyUserAgent, userAgent)
}

// Now returns the time pinned for the request, or the wall clock outside a
// request (CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := Pinned(ctx); ok {
		return t
	}
	return time.Now()
}

// Pinned returns the time pinned for the request, if any.
func Pinned(ctx context.Context) (time.Time, bool) {
	return lookup[time.Time](ctx, keyNow)
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyNow, t)
}
