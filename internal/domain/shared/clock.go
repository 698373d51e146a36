package shared

import "time"

// Clock supplies the current time. Deadline and extension logic must go
// through a Clock so tests can pin the instant a bid arrives.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
