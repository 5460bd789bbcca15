// Package clock provides an injectable time source so the monitor,
// workflow driver and recovery coordinator can be driven deterministically
// in tests.
//
// Production code uses Real(). Tests use Fake(start), whose time only moves
// when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop(ctx, c)
//	c.WaitForWaiters(1)      // loop is blocked on c.After
//	c.Advance(2500 * time.Millisecond)
package clock

import "time"

// Clock abstracts the time operations used by the engine.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
