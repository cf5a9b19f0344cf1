package interceptor

import "context"

type replayingKey struct{}

// WithReplaying tags ctx with the state machine's current replay flag so
// interceptor layers (the tracing interceptor in particular) can tell a
// genuinely new call apart from one being replayed from history, without
// this package importing the state machine itself.
func WithReplaying(ctx context.Context, replaying bool) context.Context {
	return context.WithValue(ctx, replayingKey{}, replaying)
}

// IsReplaying reports the replay flag WithReplaying attached to ctx, or
// false if none was ever attached.
func IsReplaying(ctx context.Context) bool {
	replaying, _ := ctx.Value(replayingKey{}).(bool)
	return replaying
}

// Named is optionally implemented by an outbound call's input value to give
// the tracing interceptor a more specific span name than the generic
// operation name, e.g. the activity type or the child workflow's type.
type Named interface {
	TraceName() string
}
