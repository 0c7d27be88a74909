package cache

import "time"

// Clock provides the time source for TTL bookkeeping. The default
// implementation uses time.Now; tests substitute a fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
