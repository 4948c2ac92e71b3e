package recipe

type IDGenerator interface {
	NewID() string
}

// RateLimiter admits or refuses one generation request for a key.
type RateLimiter interface {
	Allow(key string) bool
}

type unlimited struct{}

func (unlimited) Allow(string) bool { return true }
