package core

import "time"

// Clock abstracts time.Now so time-dependent state (session expiry,
// settings caches) can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

var _ Clock = SystemClock{}
