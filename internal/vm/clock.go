package vm

import "time"

// Clock abstracts waiting so the probe loop can be tested without sleeping.
type Clock interface {
	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
