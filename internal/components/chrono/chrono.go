package chrono

import "time"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
// Steam renders review dates in UTC when `cc=us` is pinned, so so does this.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// FixedTime always returns the same instant, it is meant for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}
