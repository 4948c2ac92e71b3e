package fulfillment

import "context"

type IDGenerator interface {
	NewID() string
}

// Locker serializes cooks per key. The returned release func must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

func lockKey(userID string) string { return "pantry:cook:" + userID }
