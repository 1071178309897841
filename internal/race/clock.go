package race

import "time"

// Clock supplies the current time to reducer transitions.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Replicas fold every command
// with the timestamp the sequencer stamped on it.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
