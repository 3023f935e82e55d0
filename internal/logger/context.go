package logger

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

// queryIDKey is the context key for the query ID of the current cycle.
var queryIDKey = contextKey("query_id")

// requestIDKey is the context key for the HTTP request ID.
var requestIDKey = contextKey("request_id")

// WithQueryID returns a new context carrying the given query ID.
// Every log line emitted during a request/response cycle includes it.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey, id)
}

// QueryID extracts the query ID from the context.
// Returns an empty string if no query ID is set.
func QueryID(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey).(string)
	return id
}

// WithRequestID returns a new context carrying the given HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the HTTP request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
